// Package p2p implements a store decorator: it wraps a local
// store.Store and fans reads/deletes out to every configured peer in
// parallel, merging results under a timeout, while never letting a
// down peer fail the request it degrades.
package p2p

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/store"
)

// Submitter is the subset of server.Pool the decorator needs to fan peer
// calls out through the shared worker pool. Declared here (rather than
// importing internal/server directly) so internal/server, which needs
// internal/handler, which needs internal/p2p, never forms an import cycle
// back through this package.
type Submitter interface {
	Submit(task func()) error
}

// PeerClient is the subset of rpc.Client the decorator needs; declared
// here so p2p doesn't need to import the rpc package's request/response
// wire types directly.
type PeerClient interface {
	Get(ctx context.Context, typ resource.Type, id uuid.UUID) (resource.WebResource, bool, error)
	Remove(ctx context.Context, typ resource.Type, id uuid.UUID) (bool, error)
	UUIDSet(ctx context.Context, typ resource.Type) (map[uuid.UUID]struct{}, error)
	WebResources(ctx context.Context, typ resource.Type) ([]resource.WebResource, error)
}

// Peer pairs a configured peer's display name, the base HTTP URL used
// to build resource links for it, and its RPC client.
type Peer struct {
	Name   string
	Base   string
	Client PeerClient
}

// Section is one server's contribution to a listing page: its display
// name, its base URL (empty for the local server, meaning relative
// links), and the UUIDs it reports holding.
type Section struct {
	Name string
	Base string
	IDs  []uuid.UUID
}

// Decorator wraps local for resource type typ and fans out to peers.
// It implements store.Store itself, so handlers can use it exactly
// like a bare backend.
type Decorator struct {
	typ     resource.Type
	local   store.Store
	peers   []Peer
	pool    Submitter
	timeout time.Duration
	logger  *slog.Logger
	health  *peerHealth
}

// New builds a Decorator. timeout bounds every individual peer call;
// pool is the shared worker pool peer calls are dispatched through.
func New(typ resource.Type, local store.Store, peers []Peer, pool Submitter, timeout time.Duration, logger *slog.Logger) *Decorator {
	return &Decorator{typ: typ, local: local, peers: peers, pool: pool, timeout: timeout, logger: logger, health: newPeerHealth()}
}

// peerHealthWarnAfter bounds how long a peer may go without a
// successful call before its next failure is logged at Warn instead
// of Debug.
const peerHealthWarnAfter = 30 * time.Second

// peerHealth tracks the last time each peer answered a call
// successfully, purely to grade log verbosity for later failures — a
// peer that was fine a moment ago and just hiccuped logs quietly, one
// that has been down for a while logs loudly.
type peerHealth struct {
	mu          sync.Mutex
	lastSuccess map[string]time.Time
}

func newPeerHealth() *peerHealth {
	return &peerHealth{lastSuccess: make(map[string]time.Time)}
}

func (h *peerHealth) recordSuccess(peer string) {
	h.mu.Lock()
	h.lastSuccess[peer] = time.Now()
	h.mu.Unlock()
}

func (h *peerHealth) logFailure(logger *slog.Logger, msg, peer string, typ resource.Type, err error) {
	h.mu.Lock()
	last, ok := h.lastSuccess[peer]
	h.mu.Unlock()
	if !ok || time.Since(last) > peerHealthWarnAfter {
		logger.Warn(msg, "peer", peer, "type", typ, "error", err)
		return
	}
	logger.Debug(msg, "peer", peer, "type", typ, "error", err)
}

// Local returns the wrapped backend directly, for the inbound RPC
// handler to serve peer requests without recursing back into the mesh.
func (d *Decorator) Local() store.Store { return d.local }

// run submits task to the pool, falling back to running it in the
// calling goroutine if the pool has started shutting down.
func (d *Decorator) run(task func()) {
	if err := d.pool.Submit(task); err != nil {
		task()
	}
}

// Get: local first; if absent, fan out to every peer and return the
// first non-null result, opportunistically caching it locally.
func (d *Decorator) Get(ctx context.Context, id uuid.UUID) (resource.WebResource, bool, error) {
	if r, ok, err := d.local.Get(ctx, id); err != nil {
		return resource.WebResource{}, false, err
	} else if ok {
		return r, true, nil
	}

	type found struct {
		r  resource.WebResource
		ok bool
	}
	results := make(chan found, len(d.peers))
	var wg sync.WaitGroup
	for _, peer := range d.peers {
		wg.Add(1)
		peer := peer
		d.run(func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			r, ok, err := peer.Client.Get(cctx, d.typ, id)
			if err != nil {
				d.health.logFailure(d.logger, "peer get failed", peer.Name, d.typ, err)
				ok = false
			} else {
				d.health.recordSuccess(peer.Name)
			}
			results <- found{r, ok}
		})
	}
	go func() { wg.Wait(); close(results) }()

	for res := range results {
		if res.ok {
			if err := d.local.Put(ctx, res.r); err != nil {
				// Another goroutine (or the origin itself) may have
				// inserted it concurrently; a duplicate-insert failure
				// here is not an error for the caller.
				_ = err
			}
			return res.r, true, nil
		}
	}
	return resource.WebResource{}, false, nil
}

// Put is local only; peers learn of new resources by their own reads.
func (d *Decorator) Put(ctx context.Context, r resource.WebResource) error {
	return d.local.Put(ctx, r)
}

// Remove: local first, then fan out to every peer whether or not the
// local remove succeeded. It returns true if the local remove succeeded
// or as soon as any peer reports a removal, and false once all peers
// have responded without one.
func (d *Decorator) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	localRemoved, err := d.local.Remove(ctx, id)
	if err != nil {
		return false, err
	}

	results := make(chan bool, len(d.peers))
	var wg sync.WaitGroup
	for _, peer := range d.peers {
		wg.Add(1)
		peer := peer
		d.run(func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			ok, err := peer.Client.Remove(cctx, d.typ, id)
			if err != nil {
				d.health.logFailure(d.logger, "peer remove failed", peer.Name, d.typ, err)
				ok = false
			} else {
				d.health.recordSuccess(peer.Name)
			}
			results <- ok
		})
	}
	go func() { wg.Wait(); close(results) }()

	peerRemoved := false
	for ok := range results {
		if ok {
			peerRemoved = true
			break
		}
	}
	return localRemoved || peerRemoved, nil
}

// UUIDSet unions the local set with every peer's set, waiting for all
// peers to respond (or time out).
func (d *Decorator) UUIDSet(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	union, err := d.local.UUIDSet(ctx)
	if err != nil {
		return nil, err
	}
	union = cloneSet(union)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, peer := range d.peers {
		wg.Add(1)
		peer := peer
		d.run(func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			set, err := peer.Client.UUIDSet(cctx, d.typ)
			if err != nil {
				d.health.logFailure(d.logger, "peer uuid_set failed", peer.Name, d.typ, err)
				return
			}
			d.health.recordSuccess(peer.Name)
			mu.Lock()
			for id := range set {
				union[id] = struct{}{}
			}
			mu.Unlock()
		})
	}
	wg.Wait()
	return union, nil
}

// WebResources unions the local collection with every peer's, waiting
// for all peers to respond (or time out).
func (d *Decorator) WebResources(ctx context.Context) ([]resource.WebResource, error) {
	local, err := d.local.WebResources(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	all := append([]resource.WebResource{}, local...)
	var wg sync.WaitGroup
	for _, peer := range d.peers {
		wg.Add(1)
		peer := peer
		d.run(func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			resources, err := peer.Client.WebResources(cctx, d.typ)
			if err != nil {
				d.health.logFailure(d.logger, "peer web_resources failed", peer.Name, d.typ, err)
				return
			}
			d.health.recordSuccess(peer.Name)
			mu.Lock()
			all = append(all, resources...)
			mu.Unlock()
		})
	}
	wg.Wait()
	return all, nil
}

// ListSections builds the per-server breakdown a listing page needs:
// the local section first, then one section per peer. A peer that
// fails or times out contributes an empty section rather than failing
// the whole listing.
func (d *Decorator) ListSections(ctx context.Context) []Section {
	localSet, err := d.local.UUIDSet(ctx)
	sections := make([]Section, 0, len(d.peers)+1)
	if err == nil {
		sections = append(sections, Section{Name: "local", Base: "", IDs: setToSlice(localSet)})
	} else {
		sections = append(sections, Section{Name: "local"})
	}

	type indexed struct {
		idx int
		sec Section
	}
	resultsCh := make(chan indexed, len(d.peers))
	var wg sync.WaitGroup
	for i, peer := range d.peers {
		wg.Add(1)
		i, peer := i, peer
		d.run(func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			set, err := peer.Client.UUIDSet(cctx, d.typ)
			if err != nil {
				d.health.logFailure(d.logger, "peer listing failed", peer.Name, d.typ, err)
				resultsCh <- indexed{i, Section{Name: peer.Name, Base: peer.Base}}
				return
			}
			d.health.recordSuccess(peer.Name)
			resultsCh <- indexed{i, Section{Name: peer.Name, Base: peer.Base, IDs: setToSlice(set)}}
		})
	}
	wg.Wait()
	close(resultsCh)

	peerSections := make([]Section, len(d.peers))
	for r := range resultsCh {
		peerSections[r.idx] = r.sec
	}
	sort.Slice(peerSections, func(i, j int) bool { return peerSections[i].Name < peerSections[j].Name })
	return append(sections, peerSections...)
}

func setToSlice(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (d *Decorator) Close() error { return d.local.Close() }

// PeerNames returns the configured peer names sorted alphabetically,
// for the "local first, peers alphabetical" ordering listings use.
func (d *Decorator) PeerNames() []string {
	names := make([]string, len(d.peers))
	for i, p := range d.peers {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

func cloneSet(in map[uuid.UUID]struct{}) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
