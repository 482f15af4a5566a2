package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/resource"
)

// Client calls the local-only RPC surface of a single peer. Every call
// is a single HTTP exchange over the server's own codec (internal
// httpcodec.Do) — there is no persistent connection to manage, mirroring
// the one-shot-round-trip design of the alexejk-go-xmlrpc Codec this
// package is grounded on.
type Client struct {
	// Endpoint is the full base URL of the peer's RPC route, e.g.
	// "http://10.0.0.2:8888/rpc".
	Endpoint string
}

// NewClient returns a Client for the given peer RPC endpoint.
func NewClient(endpoint string) *Client { return &Client{Endpoint: endpoint} }

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("rpc: encoding request: %w", err)
	}
	headers := httpcodec.NewHeaders()
	headers.Set("Content-Type", "application/json")
	resp, err := httpcodec.Do(ctx, c.Endpoint, "POST", headers, body)
	if err != nil {
		return Response{}, fmt.Errorf("rpc: calling %s: %w", c.Endpoint, err)
	}
	if resp.Status != 200 {
		return Response{}, fmt.Errorf("rpc: peer answered status %d", resp.Status)
	}
	var out Response
	if err := json.NewDecoder(bytes.NewReader(resp.Body)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("rpc: decoding response: %w", err)
	}
	if out.Error != "" {
		return Response{}, fmt.Errorf("rpc: peer error: %s", out.Error)
	}
	return out, nil
}

// Get performs the local_get RPC.
func (c *Client) Get(ctx context.Context, typ resource.Type, id uuid.UUID) (resource.WebResource, bool, error) {
	resp, err := c.call(ctx, Request{Type: typ, Op: OpGet, UUID: id.String()})
	if err != nil {
		return resource.WebResource{}, false, err
	}
	if !resp.Found || resp.Resource == nil {
		return resource.WebResource{}, false, nil
	}
	r, ok := fromDTO(typ, *resp.Resource)
	return r, ok, nil
}

// Remove performs the local_remove RPC.
func (c *Client) Remove(ctx context.Context, typ resource.Type, id uuid.UUID) (bool, error) {
	resp, err := c.call(ctx, Request{Type: typ, Op: OpRemove, UUID: id.String()})
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

// UUIDSet performs the local_uuid_set RPC.
func (c *Client) UUIDSet(ctx context.Context, typ resource.Type) (map[uuid.UUID]struct{}, error) {
	resp, err := c.call(ctx, Request{Type: typ, Op: OpUUIDSet})
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]struct{}, len(resp.UUIDs))
	for _, s := range resp.UUIDs {
		if id, ok := resource.ParseUUID(s); ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// WebResources performs the local_web_resources RPC.
func (c *Client) WebResources(ctx context.Context, typ resource.Type) ([]resource.WebResource, error) {
	resp, err := c.call(ctx, Request{Type: typ, Op: OpWebResources})
	if err != nil {
		return nil, err
	}
	out := make([]resource.WebResource, 0, len(resp.Resources))
	for _, dto := range resp.Resources {
		if r, ok := fromDTO(typ, dto); ok {
			out = append(out, r)
		}
	}
	return out, nil
}
