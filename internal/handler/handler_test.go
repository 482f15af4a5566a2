package handler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hybridserver/hybridserver/internal/handler"
	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/hybridserver/hybridserver/internal/p2p"
	"github.com/hybridserver/hybridserver/internal/resource"
	"github.com/hybridserver/hybridserver/internal/server"
	"github.com/hybridserver/hybridserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry builds a Registry backed by four fresh in-memory
// stores and no peers — enough to drive the full handler chain
// end-to-end without a real network listener.
func newTestRegistry(t *testing.T) (*p2p.Registry, *server.Pool) {
	t.Helper()
	pool := server.NewPool(2)
	t.Cleanup(pool.Close)
	logger := testLogger()
	newDec := func(typ resource.Type) *p2p.Decorator {
		return p2p.New(typ, store.NewMemoryStore(), nil, pool, time.Second, logger)
	}
	reg := p2p.NewRegistry(newDec(resource.HTML), newDec(resource.XML), newDec(resource.XSD), newDec(resource.XSLT))
	return reg, pool
}

func getRequest(target string) *httpcodec.Request {
	path, query := httpcodec.SplitResourceChain(target)
	req := &httpcodec.Request{
		Method:             "GET",
		ResourceChain:      target,
		ResourceName:       httpcodec.ResourceName(path),
		ResourcePath:       httpcodec.ResourcePath(path),
		ResourceParameters: httpcodec.NewParams(),
	}
	_ = httpcodec.ParseQuery(query, req.ResourceParameters)
	return req
}

func TestGetHandlerListingWhenNoUUID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.GetHandler{Type: resource.HTML, Registry: reg, Logger: testLogger()}
	req := getRequest("/html")
	require.True(t, h.Handles(req))

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 200, resp.Status)
}

func TestGetHandlerMalformedUUIDIs404(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.GetHandler{Type: resource.HTML, Registry: reg, Logger: testLogger()}
	req := getRequest("/html?uuid=not-a-uuid")

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 404, resp.Status)
}

func TestGetHandlerMissingUUIDIs404(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.GetHandler{Type: resource.HTML, Registry: reg, Logger: testLogger()}
	req := getRequest("/html?uuid=" + newUUID())

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 404, resp.Status)
}

func TestPostThenGetRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	logger := testLogger()
	postH := &handler.PostHandler{Type: resource.HTML, Registry: reg, Logger: logger}
	getH := &handler.GetHandler{Type: resource.HTML, Registry: reg, Logger: logger}

	postReq := getRequest("/html")
	postReq.Method = "POST"
	postReq.ResourceParameters.Set("html", "<p>hello</p>")

	postResp := postH.Respond(context.Background(), postReq)
	require.Equal(t, 200, postResp.Status)

	all, err := reg.For(resource.HTML).WebResources(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)

	getReq := getRequest("/html?uuid=" + all[0].UUID.String())
	getResp := getH.Respond(context.Background(), getReq)
	assert.Equal(t, 200, getResp.Status)
	assert.Equal(t, "<p>hello</p>", getResp.Body)
}

func TestPostHandlerMissingFieldIs400(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.PostHandler{Type: resource.HTML, Registry: reg, Logger: testLogger()}
	req := getRequest("/html")
	req.Method = "POST"

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 400, resp.Status)
}

func TestPostHandlerXSLTRequiresExistingXSD(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.PostHandler{Type: resource.XSLT, Registry: reg, Logger: testLogger()}
	req := getRequest("/xslt")
	req.Method = "POST"
	req.ResourceParameters.Set("xslt", "<xsl:stylesheet/>")
	req.ResourceParameters.Set("xsd", newUUID())

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 404, resp.Status)
}

func TestDeleteHandlerMissingUUIDIs400(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := &handler.DeleteHandler{Type: resource.HTML, Registry: reg, Logger: testLogger()}
	req := getRequest("/html")
	req.Method = "DELETE"

	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 400, resp.Status)
}

func TestDeleteHandlerCascadesXSLTOnXSDDelete(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	xsd := resource.New(resource.XSD, "<xs:schema/>")
	require.NoError(t, reg.For(resource.XSD).Put(ctx, xsd))
	xslt := resource.NewXSLT("<xsl:stylesheet/>", xsd.UUID)
	require.NoError(t, reg.For(resource.XSLT).Put(ctx, xslt))

	h := &handler.DeleteHandler{Type: resource.XSD, Registry: reg, Logger: testLogger()}
	req := getRequest("/xsd?uuid=" + xsd.UUID.String())
	req.Method = "DELETE"

	resp := h.Respond(ctx, req)
	assert.Equal(t, 200, resp.Status)

	_, found, err := reg.For(resource.XSLT).Get(ctx, xslt.UUID)
	require.NoError(t, err)
	assert.False(t, found, "the dependent xslt must be cascade-deleted")
}

func TestWelcomeHandlerHandlesRoot(t *testing.T) {
	h := &handler.WelcomeHandler{Logger: testLogger()}
	req := getRequest("/")
	assert.True(t, h.Handles(req))
	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 200, resp.Status)
}

func TestStatusHandlerAlwaysClaims(t *testing.T) {
	h := &handler.StatusHandler{}
	req := getRequest("/unknown")
	req.Method = "TRACE"
	assert.True(t, h.Handles(req))
	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 400, resp.Status)
}

func TestStatusHandlerAnswersOptionsStarWithAllow(t *testing.T) {
	h := &handler.StatusHandler{}
	req := getRequest("*")
	req.Method = "OPTIONS"
	resp := h.Respond(context.Background(), req)
	assert.Equal(t, 200, resp.Status)
	allow, ok := resp.Headers.Get("Allow")
	require.True(t, ok)
	assert.Contains(t, allow, "GET")
	assert.Contains(t, allow, "OPTIONS")
}

func TestChainDispatchFallsThroughToStatus(t *testing.T) {
	reg, _ := newTestRegistry(t)
	chain := handler.BuildChain(handler.Deps{Registry: reg, Logger: testLogger()})
	req := getRequest("/does-not-exist")
	resp := chain.Dispatch(context.Background(), req)
	assert.Equal(t, 400, resp.Status)
}

func TestChainDispatchRoutesToWelcome(t *testing.T) {
	reg, _ := newTestRegistry(t)
	chain := handler.BuildChain(handler.Deps{Registry: reg, Logger: testLogger()})
	req := getRequest("/")
	resp := chain.Dispatch(context.Background(), req)
	assert.Equal(t, 200, resp.Status)
}

func newUUID() string {
	return "00000000-0000-0000-0000-000000000000"
}
