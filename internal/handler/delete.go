package handler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/templates"
)

// DeleteHandler answers "DELETE /<type>?uuid=...", including the XSD
// cascade delete of every dependent XSLT resource.
type DeleteHandler struct {
	Type     resource.Type
	Registry *p2p.Registry
	Logger   *slog.Logger
}

func (h *DeleteHandler) Handles(req *httpcodec.Request) bool {
	return req.Method == "DELETE" && req.ResourceName == string(h.Type)
}

func (h *DeleteHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	uuidStr, hasUUID := req.ResourceParameters.Get("uuid")
	if !hasUUID {
		return statusResponse(400)
	}
	id, ok := resource.ParseUUID(uuidStr)
	if !ok {
		return statusResponse(404)
	}

	dec := h.Registry.For(h.Type)
	removed, err := dec.Remove(ctx, id)
	if err != nil {
		h.Logger.Warn("delete failed", "type", h.Type, "error", err)
		return statusResponse(500)
	}
	if !removed {
		return statusResponse(404)
	}

	if h.Type == resource.XSD {
		if cascadeFailed := h.cascadeDeleteXSLTs(ctx, id); cascadeFailed {
			return statusResponse(500)
		}
	}

	body, renderErr := templates.Deleted(id.String())
	if renderErr != nil {
		return statusResponse(500)
	}
	return httpcodec.HTML(body)
}

// cascadeDeleteXSLTs removes every XSLT resource whose xsd attribute
// equals deletedXSD. It reports true only when every cascade step
// failed: a partial cascade (some removed, some not) still answers
// 200 to the client; only a total cascade failure escalates to 500.
func (h *DeleteHandler) cascadeDeleteXSLTs(ctx context.Context, deletedXSD uuid.UUID) bool {
	xsltDec := h.Registry.For(resource.XSLT)
	all, err := xsltDec.WebResources(ctx)
	if err != nil {
		h.Logger.Warn("cascade delete: listing xslt resources failed", "error", err)
		return true
	}

	var dependents []resource.WebResource
	for _, r := range all {
		if r.XSD == deletedXSD {
			dependents = append(dependents, r)
		}
	}
	if len(dependents) == 0 {
		return false
	}

	failures := 0
	for _, r := range dependents {
		if _, err := xsltDec.Remove(ctx, r.UUID); err != nil {
			h.Logger.Warn("cascade delete: removing xslt failed", "xslt", r.UUID, "error", err)
			failures++
		}
	}
	return failures == len(dependents)
}
