// Package handler implements a responsibility chain: a fixed ordered
// list of handlers, each exposing Handles/Respond, walked in order
// until one claims the request. The last handler always claims it, so
// dispatch is total — a plain slice plus a fallback, rather than a
// class hierarchy.
package handler

import (
	"context"
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/httpcodec"
)

// Handler is one candidate response producer in the chain.
type Handler interface {
	Handles(req *httpcodec.Request) bool
	Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response
}

// Chain is the ordered, fixed list of handlers built once at server
// construction (not per request: every handler here is stateless
// beyond the shared registry/pipeline references it closes over).
type Chain struct {
	handlers []Handler
	logger   *slog.Logger
}

// NewChain builds a chain from handlers in priority order. The caller
// must ensure the last entry always claims the request (status-code
// fallback); when no handler claims it, Dispatch answers a bare 500.
func NewChain(logger *slog.Logger, handlers ...Handler) *Chain {
	return &Chain{handlers: handlers, logger: logger}
}

// Dispatch walks the chain and invokes the first handler that claims
// req, recovering a panic from within Respond so one bad handler never
// takes down the worker that's running it; a handler always produces
// a valid response, never a Go error that escapes it.
func (c *Chain) Dispatch(ctx context.Context, req *httpcodec.Request) (resp *httpcodec.Response) {
	for _, h := range c.handlers {
		if !h.Handles(req) {
			continue
		}
		resp = c.safeRespond(ctx, h, req)
		return resp
	}
	// Unreachable as long as the chain ends in a fallback handler.
	return httpcodec.NewResponse(500).WithBody("no handler claimed the request")
}

func (c *Chain) safeRespond(ctx context.Context, h Handler, req *httpcodec.Request) (resp *httpcodec.Response) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("handler panicked", "recover", r)
			resp = httpcodec.NewResponse(500).WithHeader("Content-Type", "text/html; charset=UTF-8").WithBody("Internal Server Error")
		}
	}()
	return h.Respond(ctx, req)
}
