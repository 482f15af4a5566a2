package httpcodec_test

import (
	"testing"

	"github.com/hybridserver/hybridserver/internal/httpcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRequestTarget(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		want   bool
	}{
		{"relative path", "GET", "/html?uuid=1", true},
		{"root", "GET", "/", true},
		{"star options", "OPTIONS", "*", true},
		{"star get is invalid", "GET", "*", false},
		{"absolute uri rejected", "GET", "http://example.com/html", false},
		{"authority form rejected", "GET", "example.com:80", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpcodec.ValidRequestTarget(tt.method, tt.target))
		})
	}
}

func TestSplitResourceChain(t *testing.T) {
	path, query := httpcodec.SplitResourceChain("/html?uuid=1&xslt=2")
	assert.Equal(t, "/html", path)
	assert.Equal(t, "uuid=1&xslt=2", query)

	path, query = httpcodec.SplitResourceChain("/html")
	assert.Equal(t, "/html", path)
	assert.Equal(t, "", query)
}

func TestResourceNameAndPath(t *testing.T) {
	assert.Equal(t, "html", httpcodec.ResourceName("/html/sub"))
	assert.Equal(t, "", httpcodec.ResourceName("/"))
	assert.Equal(t, []string{"html", "sub"}, httpcodec.ResourcePath("/html/sub/"))
	assert.Nil(t, httpcodec.ResourcePath("/"))
}

func TestParseQuery(t *testing.T) {
	p := httpcodec.NewParams()
	require.NoError(t, httpcodec.ParseQuery("uuid=1&name=a%20b", p))
	v, ok := p.Get("uuid")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, ok = p.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "a b", v)
}

func TestParseQueryRejectsMissingEquals(t *testing.T) {
	p := httpcodec.NewParams()
	err := httpcodec.ParseQuery("uuid", p)
	require.Error(t, err)
}

func TestParseQueryEmptyIsNoop(t *testing.T) {
	p := httpcodec.NewParams()
	require.NoError(t, httpcodec.ParseQuery("", p))
	assert.Equal(t, 0, p.Len())
}
