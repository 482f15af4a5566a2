package handler

import (
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
)

// Deps is everything BuildChain needs to build every handler for every
// resource type, gathered in one place so server construction only
// has to call BuildChain once.
type Deps struct {
	Registry *p2p.Registry
	Logger   *slog.Logger
	RPC      Handler // nil when federation is disabled
}

// BuildChain assembles the server's full ordered responsibility chain:
// GET/POST/DELETE for each of the four resource types, then the
// welcome page, then (if federation is enabled) the inbound RPC
// endpoint, and finally the status-code fallback that always claims
// whatever nothing else recognized.
func BuildChain(d Deps) *Chain {
	types := []resource.Type{resource.HTML, resource.XML, resource.XSD, resource.XSLT}

	handlers := make([]Handler, 0, len(types)*3+3)
	for _, t := range types {
		handlers = append(handlers,
			&GetHandler{Type: t, Registry: d.Registry, Logger: d.Logger},
			&PostHandler{Type: t, Registry: d.Registry, Logger: d.Logger},
			&DeleteHandler{Type: t, Registry: d.Registry, Logger: d.Logger},
		)
	}
	handlers = append(handlers, &WelcomeHandler{Logger: d.Logger})
	if d.RPC != nil {
		handlers = append(handlers, d.RPC)
	}
	handlers = append(handlers, &StatusHandler{})

	return NewChain(d.Logger, handlers...)
}
