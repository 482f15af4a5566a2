package httpcodec

import (
	"net/url"
	"regexp"
	"strings"
)

// relativePathRE matches the RFC 2396 abs_path plus an optional
// "?query" — the relative-path request-target form. Absolute URIs
// ("http://host/path") and the authority form ("host:port") are
// deliberately rejected: only the relative-path form is accepted.
var relativePathRE = regexp.MustCompile(`^/[A-Za-z0-9\-._~%!$&'()*+,;=:@/]*(\?[A-Za-z0-9\-._~%!$&'()*+,;=:@/?]*)?$`)

// ValidRequestTarget reports whether raw is a legal request-target for
// the given method: "*" is only legal for OPTIONS and TRACE, everything
// else must match the abs_path(+query) form.
func ValidRequestTarget(method, raw string) bool {
	if raw == "*" {
		return method == "OPTIONS" || method == "TRACE"
	}
	return relativePathRE.MatchString(raw)
}

// SplitResourceChain splits a validated request-target into its path
// and raw query components.
func SplitResourceChain(raw string) (path, query string) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

// ResourceName returns the first path segment of path, without the
// leading slash.
func ResourceName(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// ResourcePath splits path into its segments, dropping empty ones
// produced by a leading or trailing slash.
func ResourcePath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// ParseQuery parses a raw query string of "k=v" pairs separated by "&"
// into params, in order. A pair lacking "=" is a parse error.
func ParseQuery(raw string, into *Params) error {
	if raw == "" {
		return nil
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		i := strings.IndexByte(pair, '=')
		if i < 0 {
			return newParseError("query parameter %q missing '='", pair)
		}
		k, errK := url.QueryUnescape(pair[:i])
		v, errV := url.QueryUnescape(pair[i+1:])
		if errK != nil || errV != nil {
			return newParseError("malformed percent-encoding in query parameter %q", pair)
		}
		into.Set(k, v)
	}
	return nil
}

// ParseFormBody parses a application/x-www-form-urlencoded body
// identically to ParseQuery and merges the pairs into params, the body
// winning on conflict.
func ParseFormBody(body string, into *Params) error {
	return ParseQuery(body, into)
}
