package p2p

import "github.com/hybridserver/hybridserver/internal/resource"
import "github.com/hybridserver/hybridserver/internal/store"

// Registry holds one Decorator per resource type, the shape every
// handler and the inbound RPC dispatcher consume.
type Registry struct {
	decorators map[resource.Type]*Decorator
}

// NewRegistry builds a Registry from one Decorator per type.
func NewRegistry(html, xml, xsd, xslt *Decorator) *Registry {
	return &Registry{decorators: map[resource.Type]*Decorator{
		resource.HTML: html,
		resource.XML:  xml,
		resource.XSD:  xsd,
		resource.XSLT: xslt,
	}}
}

// For returns the decorator for typ.
func (reg *Registry) For(typ resource.Type) *Decorator { return reg.decorators[typ] }

// Local implements rpc.LocalStores: it resolves a resource type name to
// its *local* backend, so an inbound peer RPC call never traverses the
// mesh again.
func (reg *Registry) Local(typ string) (store.Store, bool) {
	d, ok := reg.decorators[resource.Type(typ)]
	if !ok {
		return nil, false
	}
	return d.Local(), true
}

// Close closes every decorator's backend.
func (reg *Registry) Close() error {
	var firstErr error
	for _, d := range reg.decorators {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
