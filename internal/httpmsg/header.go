// Package httpmsg holds the request/response data model shared by the
// parser, router and CGI orchestrator.
package httpmsg

import "strings"

// Header is a case-insensitive name/value store with last-wins duplicate
// policy (spec §3.2). Unlike net/http.Header it stores a single value per
// canonical name rather than a slice, since the wire protocol here has no
// use for repeated headers.
type Header struct {
	// original preserves the as-seen name for each canonical key, so
	// headers forwarded verbatim (e.g. from a CGI child, §4.5) keep the
	// caller's casing on the wire.
	original map[string]string
	values   map[string]string
}

// NewHeader returns an empty header store.
func NewHeader() *Header {
	return &Header{
		original: make(map[string]string),
		values:   make(map[string]string),
	}
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Set stores name/value, overwriting any prior value for the same
// case-insensitive name (last-wins, per spec §3.2).
func (h *Header) Set(name, value string) {
	key := canonical(name)
	if h.original == nil {
		h.original = make(map[string]string)
		h.values = make(map[string]string)
	}
	h.original[key] = name
	h.values[key] = value
}

// Get returns the value for name, case-insensitively, and whether it was
// present at all.
func (h *Header) Get(name string) (string, bool) {
	if h.values == nil {
		return "", false
	}
	v, ok := h.values[canonical(name)]
	return v, ok
}

// GetDefault returns the value for name or def if absent.
func (h *Header) GetDefault(name, def string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return def
}

// Del removes name, case-insensitively.
func (h *Header) Del(name string) {
	key := canonical(name)
	delete(h.original, key)
	delete(h.values, key)
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// HasPrefix reports whether the value for name begins with prefix,
// case-sensitively on the value (used for Content-Type checks).
func (h *Header) HasPrefix(name, prefix string) bool {
	v, ok := h.Get(name)
	return ok && strings.HasPrefix(v, prefix)
}

// Names returns the as-seen names, in no particular order.
func (h *Header) Names() []string {
	names := make([]string, 0, len(h.original))
	for _, n := range h.original {
		names = append(names, n)
	}
	return names
}

// Entries returns (as-seen name, value) pairs, in no particular order.
// Used when serializing a response or forwarding CGI headers verbatim.
func (h *Header) Entries() []KV {
	out := make([]KV, 0, len(h.values))
	for key, v := range h.values {
		out = append(out, KV{Name: h.original[key], Value: v})
	}
	return out
}

// KV is a single header name/value pair as it should appear on the wire.
type KV struct {
	Name  string
	Value string
}
