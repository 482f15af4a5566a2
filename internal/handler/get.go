package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/templates"
	"github.com/hybridserver/hybridserver/internal/xslt"
)

// GetHandler answers "GET /<type>[?uuid=...]". For resource.XML it
// additionally runs the XSLT pipeline when an "xslt" query parameter
// is present — a conditional inside Respond rather than a second
// handler type.
type GetHandler struct {
	Type     resource.Type
	Registry *p2p.Registry
	Logger   *slog.Logger
}

func (h *GetHandler) Handles(req *httpcodec.Request) bool {
	return (req.Method == "GET" || req.Method == "HEAD") && req.ResourceName == string(h.Type)
}

func (h *GetHandler) Respond(ctx context.Context, req *httpcodec.Request) *httpcodec.Response {
	dec := h.Registry.For(h.Type)

	uuidStr, hasUUID := req.ResourceParameters.Get("uuid")
	if !hasUUID {
		resp := h.listing(ctx, dec)
		if req.Method == "HEAD" {
			resp.Body = ""
		}
		return resp
	}

	id, ok := resource.ParseUUID(uuidStr)
	if !ok {
		// A malformed UUID is a 404, not a 400.
		return httpcodec.NewResponse(404).WithHeader("Content-Type", "text/html; charset=UTF-8").WithBody(mustStatus(404))
	}

	res, found, err := dec.Get(ctx, id)
	if err != nil {
		h.Logger.Warn("get failed", "type", h.Type, "error", err)
		return statusResponse(500)
	}
	if !found {
		return statusResponse(404)
	}

	if h.Type == resource.XML {
		if xsltUUIDStr, hasXSLT := req.ResourceParameters.Get("xslt"); hasXSLT {
			if resp := h.transform(ctx, res, xsltUUIDStr); resp != nil {
				return resp
			}
		}
	}

	body := res.Content
	if req.Method == "HEAD" {
		body = ""
	}
	return httpcodec.Raw(h.Type.MIME(), body)
}

// transform runs the XSD-validate-then-transform pipeline and returns
// the response that supersedes the plain-content one: the transformed
// document on success, an error status page otherwise. It never
// returns nil.
func (h *GetHandler) transform(ctx context.Context, xmlRes resource.WebResource, xsltUUIDStr string) *httpcodec.Response {
	xsltID, ok := resource.ParseUUID(xsltUUIDStr)
	if !ok {
		return statusResponse(404)
	}
	xsltDec := h.Registry.For(resource.XSLT)
	xsltRes, found, err := xsltDec.Get(ctx, xsltID)
	if err != nil {
		h.Logger.Warn("xslt lookup failed", "error", err)
		return statusResponse(500)
	}
	if !found {
		return statusResponse(404)
	}

	xsdDec := h.Registry.For(resource.XSD)
	xsdRes, found, err := xsdDec.Get(ctx, xsltRes.XSD)
	if err != nil {
		h.Logger.Warn("xsd lookup failed", "error", err)
		return statusResponse(500)
	}
	if !found {
		return statusResponse(404)
	}

	result, err := xslt.Transform(xmlRes.Content, xsdRes.Content, xsltRes.Content)
	if err != nil {
		reason := err.Error()
		if apperr.KindOf(err) != apperr.KindValidation {
			return statusResponse(500)
		}
		body, renderErr := templates.XSLTError(reason)
		if renderErr != nil {
			return statusResponse(500)
		}
		return httpcodec.NewResponse(400).WithHeader("Content-Type", "text/html; charset=UTF-8").WithBody(body)
	}

	return httpcodec.Raw(result.MIME, result.Content)
}

func (h *GetHandler) listing(ctx context.Context, dec *p2p.Decorator) *httpcodec.Response {
	sections := dec.ListSections(ctx)
	tplSections := make([]templates.ListingSection, 0, len(sections))
	for _, s := range sections {
		links := make([]string, 0, len(s.IDs))
		for _, id := range s.IDs {
			links = append(links, fmt.Sprintf("%s%s?uuid=%s", s.Base, h.Type, id.String()))
		}
		tplSections = append(tplSections, templates.ListingSection{Server: s.Name, Links: links})
	}
	body, err := templates.Listing(string(h.Type), tplSections)
	if err != nil {
		h.Logger.Warn("rendering listing failed", "error", err)
		return statusResponse(500)
	}
	return httpcodec.HTML(body)
}

func statusResponse(code int) *httpcodec.Response {
	return httpcodec.NewResponse(code).WithHeader("Content-Type", "text/html; charset=UTF-8").WithBody(mustStatus(code))
}

func mustStatus(code int) string {
	body, err := templates.Status(code, httpcodec.ReasonPhrase(code))
	if err != nil {
		return fmt.Sprintf("%d %s", code, httpcodec.ReasonPhrase(code))
	}
	return body
}
