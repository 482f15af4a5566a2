package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/apperr"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetRemove(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	r := resource.New(resource.HTML, "<p>hi</p>")
	require.NoError(t, s.Put(ctx, r))

	got, found, err := s.Get(ctx, r.UUID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, r.Content, got.Content)

	removed, err := s.Remove(ctx, r.UUID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, found, err = s.Get(ctx, r.UUID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStorePutIsInsertOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	r := resource.New(resource.XML, "<a/>")
	require.NoError(t, s.Put(ctx, r))

	err := s.Put(ctx, r)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyMapped)
}

func TestMemoryStoreRemoveMissingReturnsFalse(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	removed, err := s.Remove(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStoreUUIDSetAndWebResources(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	a := resource.New(resource.HTML, "a")
	b := resource.New(resource.HTML, "b")
	require.NoError(t, s.Put(ctx, a))
	require.NoError(t, s.Put(ctx, b))

	set, err := s.UUIDSet(ctx)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Contains(t, set, a.UUID)
	assert.Contains(t, set, b.UUID)

	all, err := s.WebResources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStoreConcurrentPutsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	id := uuid.New()
	r := resource.WebResource{Type: resource.HTML, UUID: id, Content: "race"}

	const attempts = 50
	var wg sync.WaitGroup
	successes := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			successes <- s.Put(ctx, r) == nil
		}()
	}
	wg.Wait()
	close(successes)

	wins := 0
	for ok := range successes {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent put for the same UUID must succeed")
}
