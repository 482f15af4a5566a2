// Package rpc implements the peer-to-peer wire surface: a small JSON
// envelope carrying one of the four local-only store operations for a
// given resource type, posted over the server's own HTTP codec. The
// four per-type operations are collapsed into a single discriminated
// message rather than reflective per-type methods.
//
// The client side round-trips one HTTP request per call rather than
// holding a persistent stream.
package rpc

import "github.com/hybridserver/hybridserver/internal/resource"

// Op identifies which local-only store method a Request invokes.
type Op string

const (
	OpGet          Op = "get"
	OpRemove       Op = "remove"
	OpUUIDSet      Op = "uuidSet"
	OpWebResources Op = "webResources"
)

// Request is the envelope posted to a peer's RPC endpoint.
type Request struct {
	Type resource.Type `json:"type"`
	Op   Op            `json:"op"`
	UUID string        `json:"uuid,omitempty"`
}

// resourceDTO is the wire shape of a resource.WebResource.
type resourceDTO struct {
	UUID    string `json:"uuid"`
	Content string `json:"content"`
	XSD     string `json:"xsd,omitempty"`
}

func toDTO(r resource.WebResource) resourceDTO {
	dto := resourceDTO{UUID: r.UUID.String(), Content: r.Content}
	if r.Type == resource.XSLT {
		dto.XSD = r.XSD.String()
	}
	return dto
}

func fromDTO(typ resource.Type, dto resourceDTO) (resource.WebResource, bool) {
	id, ok := resource.ParseUUID(dto.UUID)
	if !ok {
		return resource.WebResource{}, false
	}
	r := resource.WebResource{Type: typ, UUID: id, Content: dto.Content}
	if typ == resource.XSLT && dto.XSD != "" {
		if xsd, ok := resource.ParseUUID(dto.XSD); ok {
			r.XSD = xsd
		}
	}
	return r, true
}

// Response is the envelope a peer answers a Request with. Only the
// fields relevant to the request's Op are populated.
type Response struct {
	Found     bool          `json:"found,omitempty"`
	Resource  *resourceDTO  `json:"resource,omitempty"`
	Removed   bool          `json:"removed,omitempty"`
	UUIDs     []string      `json:"uuids,omitempty"`
	Resources []resourceDTO `json:"resources,omitempty"`
	Error     string        `json:"error,omitempty"`
}
