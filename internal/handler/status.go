package handler

import (
	"context"

	"github.com/hybridserver/hybridserver/internal/httpcodec"
)

// allowedMethods lists every method this server answers a valid
// request-target with, in the order reported by an OPTIONS * Allow
// header.
var allowedMethods = "GET, HEAD, POST, DELETE, OPTIONS"

// StatusHandler is the chain's tail: it always claims the request, so
// Dispatch is total even when no other handler recognized the resource
// name or method. An unrecognized resource name or method is a 400:
// the request was well-formed HTTP, just not for anything this server
// exposes. OPTIONS against the server-wide "*" target is the one
// exception: it answers 200 with an Allow header instead.
type StatusHandler struct{}

func (h *StatusHandler) Handles(req *httpcodec.Request) bool { return true }

func (h *StatusHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	if req.Method == "OPTIONS" && req.ResourceChain == "*" {
		return httpcodec.NewResponse(200).WithHeader("Allow", allowedMethods)
	}
	return statusResponse(400)
}
