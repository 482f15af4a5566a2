// Package resource defines the typed web-resource data model: the
// immutable, UUID-keyed documents the store, the P2P decorator and the
// handler chain all move around.
package resource

import (
	"github.com/google/uuid"
)

// Type is the tag distinguishing the four kinds of web resource the
// server knows how to store and serve.
type Type string

const (
	HTML  Type = "html"
	XML   Type = "xml"
	XSD   Type = "xsd"
	XSLT  Type = "xslt"
	field      = "content" // attribute name every resource carries
)

// MIME returns the media type a resource of this Type is served with.
func (t Type) MIME() string {
	switch t {
	case HTML:
		return "text/html"
	case XML:
		return "application/xml"
	case XSD:
		return "application/xml"
	case XSLT:
		return "application/xslt+xml"
	default:
		return "application/octet-stream"
	}
}

// FormField is the form-urlencoded field name a POST to this Type's
// route must carry.
func (t Type) FormField() string { return string(t) }

// Valid reports whether t is one of the four recognized types.
func (t Type) Valid() bool {
	switch t {
	case HTML, XML, XSD, XSLT:
		return true
	default:
		return false
	}
}

// WebResource is the immutable record stored per UUID. XSD is the UUID
// of the schema an XSLT resource declares itself validated against; it
// is the zero UUID (and ignored) for every other Type.
type WebResource struct {
	Type    Type
	UUID    uuid.UUID
	Content string
	XSD     uuid.UUID
}

// New constructs a resource with a freshly generated UUID.
func New(t Type, content string) WebResource {
	return WebResource{Type: t, UUID: uuid.New(), Content: content}
}

// NewXSLT constructs an XSLT resource bound to the given XSD UUID.
func NewXSLT(content string, xsd uuid.UUID) WebResource {
	return WebResource{Type: XSLT, UUID: uuid.New(), Content: content, XSD: xsd}
}

// Equal compares type tag and content only. UUID is deliberately
// excluded — two resources with different UUIDs but identical type
// and content compare equal.
func (r WebResource) Equal(other WebResource) bool {
	return r.Type == other.Type && r.Content == other.Content
}

// ParseUUID parses s as a canonical UUID, returning ok=false (not an
// error) on a malformed string — a malformed UUID in a request is
// treated the same as a miss, never as a parse error.
func ParseUUID(s string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
