package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/store"
)

// LocalStores resolves a resource type to its backing store, letting
// Dispatch answer a Request using only the *local* store — never the
// P2P decorator — so an inbound peer call can't recurse back out to
// the whole mesh.
type LocalStores interface {
	Local(typ string) (store.Store, bool)
}

// Dispatch decodes, executes and re-encodes one inbound RPC call. It
// never returns a Go error for a request-shaped problem — those are
// reported inside the Response's Error field, exactly like every other
// handler in this server always producing a valid response.
func Dispatch(ctx context.Context, stores LocalStores, logger *slog.Logger, body []byte) []byte {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return encode(Response{Error: fmt.Sprintf("malformed request: %v", err)})
	}

	s, ok := stores.Local(string(req.Type))
	if !ok {
		return encode(Response{Error: fmt.Sprintf("unknown resource type %q", req.Type)})
	}

	switch req.Op {
	case OpGet:
		id, ok := resource.ParseUUID(req.UUID)
		if !ok {
			return encode(Response{Found: false})
		}
		r, found, err := s.Get(ctx, id)
		if err != nil {
			logger.Warn("rpc get failed", "type", req.Type, "error", err)
			return encode(Response{Error: err.Error()})
		}
		if !found {
			return encode(Response{Found: false})
		}
		dto := toDTO(r)
		return encode(Response{Found: true, Resource: &dto})

	case OpRemove:
		id, ok := resource.ParseUUID(req.UUID)
		if !ok {
			return encode(Response{Removed: false})
		}
		removed, err := s.Remove(ctx, id)
		if err != nil {
			logger.Warn("rpc remove failed", "type", req.Type, "error", err)
			return encode(Response{Error: err.Error()})
		}
		return encode(Response{Removed: removed})

	case OpUUIDSet:
		set, err := s.UUIDSet(ctx)
		if err != nil {
			logger.Warn("rpc uuid_set failed", "type", req.Type, "error", err)
			return encode(Response{Error: err.Error()})
		}
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id.String())
		}
		return encode(Response{UUIDs: ids})

	case OpWebResources:
		resources, err := s.WebResources(ctx)
		if err != nil {
			logger.Warn("rpc web_resources failed", "type", req.Type, "error", err)
			return encode(Response{Error: err.Error()})
		}
		dtos := make([]resourceDTO, 0, len(resources))
		for _, r := range resources {
			dtos = append(dtos, toDTO(r))
		}
		return encode(Response{Resources: dtos})

	default:
		return encode(Response{Error: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

func encode(resp Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"error":"internal: failed to encode response"}`)
	}
	return b
}

