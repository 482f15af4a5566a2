package handler

import (
	"context"
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/templates"
)

// WelcomeHandler answers "GET /".
type WelcomeHandler struct {
	Logger *slog.Logger
}

func (h *WelcomeHandler) Handles(req *httpcodec.Request) bool {
	return req.Method == "GET" && req.ResourceName == ""
}

func (h *WelcomeHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	body, err := templates.Welcome()
	if err != nil {
		h.Logger.Warn("rendering welcome page failed", "error", err)
		return statusResponse(500)
	}
	return httpcodec.HTML(body)
}
