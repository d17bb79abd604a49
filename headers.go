package fetchttp

import (
	"iter"
	"maps"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Headers is a case-insensitive set of HTTP headers. Names are stored in
// lowercase and every field holds a single value; repeated values are joined
// with ", ".
//
// The zero value is ready to use. Headers is not safe for concurrent
// mutation.
type Headers struct {
	m map[string]string
}

// NewHeaders returns an empty header set.
func NewHeaders() *Headers {
	return &Headers{m: make(map[string]string)}
}

// HeadersFromMap validates and stores every pair of m. The first invalid
// pair aborts the whole conversion.
func HeadersFromMap(m map[string]string) (*Headers, error) {
	h := NewHeaders()
	for name, value := range m {
		if err := h.Set(name, value); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Set replaces any value stored under name.
func (h *Headers) Set(name, value string) error {
	key, val, err := normalizeField(name, value)
	if err != nil {
		return err
	}
	h.init()
	h.m[key] = val
	return nil
}

// Append adds value to name, joining it to an existing value with ", ".
func (h *Headers) Append(name, value string) error {
	key, val, err := normalizeField(name, value)
	if err != nil {
		return err
	}
	h.init()
	if existing, ok := h.m[key]; ok {
		h.m[key] = existing + ", " + val
		return nil
	}
	h.m[key] = val
	return nil
}

// Get returns the value stored under name. Names that fail validation are
// never present.
func (h *Headers) Get(name string) (string, bool) {
	if h == nil || h.m == nil {
		return "", false
	}
	v, ok := h.m[strings.ToLower(name)]
	return v, ok
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Delete removes name. Deleting an absent header is a no-op; an invalid name
// is a TypeError.
func (h *Headers) Delete(name string) error {
	key, err := normalizeName(name)
	if err != nil {
		return err
	}
	if h != nil && h.m != nil {
		delete(h.m, key)
	}
	return nil
}

// GetSetCookie splits the stored set-cookie value back into individual
// cookies. Cookie values that themselves contain ", " are split too.
func (h *Headers) GetSetCookie() []string {
	v, ok := h.Get("set-cookie")
	if !ok {
		return nil
	}
	return strings.Split(v, ", ")
}

func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.m)
}

// Entries iterates name/value pairs in no particular order.
func (h *Headers) Entries() iter.Seq2[string, string] {
	if h == nil {
		return func(func(string, string) bool) {}
	}
	return maps.All(h.m)
}

func (h *Headers) Keys() iter.Seq[string] {
	if h == nil {
		return func(func(string) bool) {}
	}
	return maps.Keys(h.m)
}

func (h *Headers) Values() iter.Seq[string] {
	if h == nil {
		return func(func(string) bool) {}
	}
	return maps.Values(h.m)
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	if h == nil {
		return NewHeaders()
	}
	c := &Headers{m: make(map[string]string, len(h.m))}
	maps.Copy(c.m, h.m)
	return c
}

func (h *Headers) init() {
	if h.m == nil {
		h.m = make(map[string]string)
	}
}

// httpHeader renders the set for a transport. Keys stay lowercase.
func (h *Headers) httpHeader() http.Header {
	out := make(http.Header, h.Len())
	for k, v := range h.Entries() {
		out[k] = []string{v}
	}
	return out
}

// headersFromHTTP copies every valid field of src and returns the names of
// fields it had to skip. A field with any invalid value is skipped whole.
// Keys of src that differ only in case are joined like repeated values.
func headersFromHTTP(src http.Header) (*Headers, []string) {
	h := NewHeaders()
	var skipped []string
	for name, values := range src {
		field := NewHeaders()
		var err error
		for _, v := range values {
			if err = field.Append(name, v); err != nil {
				break
			}
		}
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		for k, v := range field.Entries() {
			if existing, ok := h.m[k]; ok {
				v = existing + ", " + v
			}
			h.m[k] = v
		}
	}
	return h, skipped
}

func normalizeField(name, value string) (string, string, error) {
	key, err := normalizeName(name)
	if err != nil {
		return "", "", err
	}
	val, err := normalizeValue(value)
	if err != nil {
		return "", "", err
	}
	return key, val, nil
}

func normalizeName(name string) (string, error) {
	if !httpguts.ValidHeaderFieldName(name) {
		return "", typeError("invalid header name %q", name)
	}
	return strings.ToLower(name), nil
}

func normalizeValue(value string) (string, error) {
	trimmed := strings.Trim(value, " \t")
	for i := 0; i < len(trimmed); i++ {
		if !isFieldValueByte(trimmed[i]) {
			return "", typeError("invalid header value %q", value)
		}
	}
	return trimmed, nil
}

func isFieldValueByte(b byte) bool {
	return (b >= 0x21 && b <= 0x7e) || b == ' ' || b == '\t'
}
