package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/templates"
)

const maxPutRetries = 8 // retries on the astronomically unlikely UUID collision

// PostHandler answers "POST /<type>".
type PostHandler struct {
	Type     resource.Type
	Registry *p2p.Registry
	Logger   *slog.Logger
}

func (h *PostHandler) Handles(req *httpcodec.Request) bool {
	return req.Method == "POST" && req.ResourceName == string(h.Type)
}

func (h *PostHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	content, ok := req.ResourceParameters.Get(h.Type.FormField())
	if !ok {
		return statusResponse(400)
	}

	var xsd uuid.UUID
	if h.Type == resource.XSLT {
		xsdStr, ok := req.ResourceParameters.Get("xsd")
		if !ok {
			return statusResponse(400)
		}
		id, ok := resource.ParseUUID(xsdStr)
		if !ok {
			return statusResponse(400)
		}
		_, found, err := h.Registry.For(resource.XSD).Get(ctx, id)
		if err != nil {
			h.Logger.Warn("xsd lookup failed", "error", err)
			return statusResponse(500)
		}
		if !found {
			return statusResponse(404)
		}
		xsd = id
	}

	dec := h.Registry.For(h.Type)
	var created resource.WebResource
	for attempt := 0; attempt < maxPutRetries; attempt++ {
		if h.Type == resource.XSLT {
			created = resource.NewXSLT(content, xsd)
		} else {
			created = resource.New(h.Type, content)
		}
		err := dec.Put(ctx, created)
		if err == nil {
			body, renderErr := templates.Created(fmt.Sprintf("%s?uuid=%s", h.Type, created.UUID))
			if renderErr != nil {
				return statusResponse(500)
			}
			return httpcodec.HTML(body)
		}
		if !errors.Is(err, apperr.ErrAlreadyMapped) {
			h.Logger.Warn("post failed", "type", h.Type, "error", err)
			return statusResponse(500)
		}
		// A collision on a freshly generated UUID is vanishingly
		// unlikely; retry with a new one rather than fail the request.
	}
	h.Logger.Warn("post exhausted uuid collision retries", "type", h.Type)
	return statusResponse(500)
}
