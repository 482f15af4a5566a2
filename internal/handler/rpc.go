package handler

import (
	"context"
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/rpc"
)

// RPCHandler answers "POST /rpc" — the inbound half of the mesh. It is
// only wired into the chain when federation is enabled
// (config.Config.FederationEnabled).
type RPCHandler struct {
	Path   string // e.g. "rpc"
	Stores rpc.LocalStores
	Logger *slog.Logger
}

func (h *RPCHandler) Handles(req *httpcodec.Request) bool {
	return req.Method == "POST" && req.ResourceName == h.Path
}

func (h *RPCHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	out := rpc.Dispatch(ctx, h.Stores, h.Logger, req.BodyBytes)
	return httpcodec.NewResponse(200).WithHeader("Content-Type", "application/json").WithBody(string(out))
}
