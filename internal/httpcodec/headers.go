package httpcodec

import "strings"

// Headers is a case-insensitive key/value mapping that preserves
// insertion order, used for both request and response header
// parameters. Headers must be written back out in the order they were
// set, never sorted.
type Headers struct {
	order []string          // keys in original-case, insertion order
	index map[string]int    // lowercased key -> position in order
	data  map[string]string // lowercased key -> value
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int), data: make(map[string]string)}
}

func normalize(key string) string { return strings.ToLower(key) }

// Set stores value for key, replacing any prior value. The original
// casing of the first Set call for a given key is what gets written out.
func (h *Headers) Set(key, value string) {
	lk := normalize(key)
	if _, ok := h.index[lk]; !ok {
		h.index[lk] = len(h.order)
		h.order = append(h.order, key)
	}
	h.data[lk] = value
}

// Get returns the value for key and whether it was present.
func (h *Headers) Get(key string) (string, bool) {
	v, ok := h.data[normalize(key)]
	return v, ok
}

// GetDefault returns the value for key, or def if absent.
func (h *Headers) GetDefault(key, def string) string {
	if v, ok := h.Get(key); ok {
		return v
	}
	return def
}

// Has reports whether key is present, case-insensitively.
func (h *Headers) Has(key string) bool {
	_, ok := h.data[normalize(key)]
	return ok
}

// Del removes key, if present.
func (h *Headers) Del(key string) {
	lk := normalize(key)
	pos, ok := h.index[lk]
	if !ok {
		return
	}
	delete(h.data, lk)
	delete(h.index, lk)
	h.order = append(h.order[:pos], h.order[pos+1:]...)
	for k, p := range h.index {
		if p > pos {
			h.index[k] = p - 1
		}
	}
}

// Keys returns the header names in insertion order, in their original
// casing.
func (h *Headers) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Len reports the number of distinct headers stored.
func (h *Headers) Len() int { return len(h.order) }

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	c := NewHeaders()
	for _, k := range h.order {
		v, _ := h.Get(k)
		c.Set(k, v)
	}
	return c
}
