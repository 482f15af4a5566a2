// Package store implements the typed web-resource data-access
// contract: a storage-agnostic interface with an in-memory and a
// relational backend, both insert-only on Put and weakly consistent on
// reads.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/resource"
)

// Store is the per-type contract every backend implements. Put never
// overwrites: a second Put for an already-present UUID returns
// apperr.ErrAlreadyMapped and leaves the stored value untouched.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (resource.WebResource, bool, error)
	Put(ctx context.Context, r resource.WebResource) error
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	UUIDSet(ctx context.Context) (map[uuid.UUID]struct{}, error)
	WebResources(ctx context.Context) ([]resource.WebResource, error)
	Close() error
}
