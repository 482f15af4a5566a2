package p2p_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/server"
	"github.com/hybridserver/hybridserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeerClient struct {
	get          resource.WebResource
	getFound     bool
	getErr       error
	remove       bool
	removeErr    error
	uuidSet      map[uuid.UUID]struct{}
	uuidSetErr   error
	webResources []resource.WebResource
	webResErr    error
}

func (f *fakePeerClient) Get(ctx context.Context, typ resource.Type, id uuid.UUID) (resource.WebResource, bool, error) {
	return f.get, f.getFound, f.getErr
}
func (f *fakePeerClient) Remove(ctx context.Context, typ resource.Type, id uuid.UUID) (bool, error) {
	return f.remove, f.removeErr
}
func (f *fakePeerClient) UUIDSet(ctx context.Context, typ resource.Type) (map[uuid.UUID]struct{}, error) {
	return f.uuidSet, f.uuidSetErr
}
func (f *fakePeerClient) WebResources(ctx context.Context, typ resource.Type) ([]resource.WebResource, error) {
	return f.webResources, f.webResErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// levelRecordingHandler records only the level of every log call, so a
// test can assert on verbosity without parsing formatted output.
type levelRecordingHandler struct {
	levels *[]slog.Level
}

func (h levelRecordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h levelRecordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.levels = append(*h.levels, r.Level)
	return nil
}
func (h levelRecordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h levelRecordingHandler) WithGroup(string) slog.Handler      { return h }

func TestDecoratorGetLocalHit(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	r := resource.New(resource.HTML, "local")
	require.NoError(t, local.Put(ctx, r))

	pool := server.NewPool(2)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, nil, pool, time.Second, testLogger())

	got, found, err := dec.Get(ctx, r.UUID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "local", got.Content)
}

func TestDecoratorGetFallsBackToPeer(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	remote := resource.New(resource.HTML, "from-peer")

	peer := &fakePeerClient{get: remote, getFound: true}
	pool := server.NewPool(2)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, testLogger())

	got, found, err := dec.Get(ctx, remote.UUID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-peer", got.Content)

	cached, found, err := local.Get(ctx, remote.UUID)
	require.NoError(t, err)
	require.True(t, found, "a peer hit should be cached locally")
	assert.Equal(t, "from-peer", cached.Content)
}

func TestDecoratorGetMissEverywhere(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	peer := &fakePeerClient{getFound: false}
	pool := server.NewPool(1)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, testLogger())

	_, found, err := dec.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDecoratorGetIgnoresPeerError(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	peer := &fakePeerClient{getErr: errors.New("peer down")}
	pool := server.NewPool(1)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, testLogger())

	_, found, err := dec.Get(ctx, uuid.New())
	require.NoError(t, err, "a peer error must never surface as a decorator error")
	assert.False(t, found)
}

func TestDecoratorUUIDSetUnionsAllPeers(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	localRes := resource.New(resource.XML, "local")
	require.NoError(t, local.Put(ctx, localRes))

	peerID := uuid.New()
	peer := &fakePeerClient{uuidSet: map[uuid.UUID]struct{}{peerID: {}}}
	pool := server.NewPool(2)
	defer pool.Close()
	dec := p2p.New(resource.XML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, testLogger())

	union, err := dec.UUIDSet(ctx)
	require.NoError(t, err)
	assert.Len(t, union, 2)
	assert.Contains(t, union, localRes.UUID)
	assert.Contains(t, union, peerID)
}

func TestDecoratorRemoveFirstSuccessWins(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	peer := &fakePeerClient{remove: true}
	pool := server.NewPool(2)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, testLogger())

	removed, err := dec.Remove(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestDecoratorListSectionsIncludesLocalFirst(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()
	r := resource.New(resource.HTML, "x")
	require.NoError(t, local.Put(ctx, r))

	pool := server.NewPool(1)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, nil, pool, time.Second, testLogger())

	sections := dec.ListSections(ctx)
	require.Len(t, sections, 1)
	assert.Equal(t, "local", sections[0].Name)
	assert.Equal(t, []uuid.UUID{r.UUID}, sections[0].IDs)
}

func TestDecoratorGradesPeerFailureLogLevelByRecentHealth(t *testing.T) {
	ctx := context.Background()
	local := store.NewMemoryStore()

	var levels []slog.Level
	logger := slog.New(levelRecordingHandler{levels: &levels})

	peer := &fakePeerClient{}
	pool := server.NewPool(1)
	defer pool.Close()
	dec := p2p.New(resource.HTML, local, []p2p.Peer{{Name: "b", Client: peer}}, pool, time.Second, logger)

	// No prior success recorded for this peer: the first failure must
	// be loud.
	peer.getErr = errors.New("peer down")
	_, _, err := dec.Get(ctx, uuid.New())
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, slog.LevelWarn, levels[0])

	// A success resets the peer's health; the very next failure is
	// still within its normal operating noise and logs quietly.
	peer.getErr = nil
	peer.getFound = true
	peer.get = resource.New(resource.HTML, "from-peer")
	_, _, err = dec.Get(ctx, uuid.New())
	require.NoError(t, err)

	peer.getErr = errors.New("peer blipped")
	peer.getFound = false
	_, _, err = dec.Get(ctx, uuid.New())
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, slog.LevelDebug, levels[1])
}
