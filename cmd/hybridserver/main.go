// Command hybridserver starts one HybridServer instance: it loads the
// YAML configuration named on the command line (or the default path),
// wires the storage backend, the P2P mesh and the handler chain, and
// runs until a line is read from standard input — the simplest
// possible stop trigger a CLI process can offer.
package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hybridserver/hybridserver/internal/config"
	"github.com/hybridserver/hybridserver/internal/handler"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/rpc"
	"github.com/hybridserver/hybridserver/internal/server"
	"github.com/hybridserver/hybridserver/internal/store"

	_ "github.com/lib/pq"
)

const defaultConfigPath = "hybridserver.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	path := defaultConfigPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("loading configuration", "error", err)
		return 1
	}

	srv, registry, err := build(cfg, logger)
	if err != nil {
		logger.Error("building server", "error", err)
		return 1
	}

	if err := srv.Start(); err != nil {
		logger.Error("starting server", "error", err)
		_ = registry.Close()
		return 1
	}
	logger.Info("server started", "addr", srv.Addr)

	bufio.NewReader(os.Stdin).ReadString('\n')

	if err := srv.Stop(); err != nil {
		logger.Error("stopping server", "error", err)
		return 1
	}
	return 0
}

// build wires a Config into a Server, not yet started, plus the
// Registry it owns: worker pool and backend first, then one Decorator per resource type, then the
// registry, then the chain, then the server itself.
func build(cfg config.Config, logger *slog.Logger) (*server.Server, *p2p.Registry, error) {
	pool := server.NewPool(cfg.NumClients)

	backends, err := newBackends(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	peers := newPeers(cfg)

	const peerTimeout = 5 * time.Second
	decorators := make(map[resource.Type]*p2p.Decorator, 4)
	for typ, backend := range backends {
		decorators[typ] = p2p.New(typ, backend, peers, pool, peerTimeout, logger)
	}
	registry := p2p.NewRegistry(decorators[resource.HTML], decorators[resource.XML], decorators[resource.XSD], decorators[resource.XSLT])

	var rpcHandler handler.Handler
	if cfg.FederationEnabled() {
		rpcHandler = &handler.RPCHandler{Path: "rpc", Stores: registry, Logger: logger}
	}

	chain := handler.BuildChain(handler.Deps{Registry: registry, Logger: logger, RPC: rpcHandler})

	srv := &server.Server{
		Addr:     fmt.Sprintf(":%d", cfg.Port),
		Chain:    chain,
		Pool:     pool,
		Logger:   logger,
		StopWait: cfg.StopWait(),
		Backend:  registry,
	}
	return srv, registry, nil
}

func newBackends(cfg config.Config, logger *slog.Logger) (map[resource.Type]store.Store, error) {
	types := []resource.Type{resource.HTML, resource.XML, resource.XSD, resource.XSLT}
	out := make(map[resource.Type]store.Store, len(types))

	if cfg.DBURL == "" {
		for _, t := range types {
			out[t] = store.NewMemoryStore()
		}
		return out, nil
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("main: opening database: %w", err)
	}
	for _, t := range types {
		s, err := store.NewSQLStore(db, t, store.TableName(t), logger)
		if err != nil {
			return nil, fmt.Errorf("main: building %s store: %w", t, err)
		}
		out[t] = s
	}
	return out, nil
}

func newPeers(cfg config.Config) []p2p.Peer {
	peers := make([]p2p.Peer, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		endpoint := p.HTTPBase + "/rpc"
		peers = append(peers, p2p.Peer{
			Name:   p.Name,
			Base:   p.HTTPBase + "/",
			Client: rpc.NewClient(endpoint),
		})
	}
	return peers
}
