package fetchttp

import (
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type RequestMode string

const (
	ModeSameOrigin RequestMode = "same-origin"
	ModeCors       RequestMode = "cors"
	ModeNoCors     RequestMode = "no-cors"
	ModeNavigate   RequestMode = "navigate"
)

type RequestCredentials string

const (
	CredentialsOmit       RequestCredentials = "omit"
	CredentialsSameOrigin RequestCredentials = "same-origin"
	CredentialsInclude    RequestCredentials = "include"
)

type RequestCache string

const (
	CacheDefault      RequestCache = "default"
	CacheNoStore      RequestCache = "no-store"
	CacheReload       RequestCache = "reload"
	CacheNoCache      RequestCache = "no-cache"
	CacheForceCache   RequestCache = "force-cache"
	CacheOnlyIfCached RequestCache = "only-if-cached"
)

type RequestRedirect string

const (
	RedirectFollow RequestRedirect = "follow"
	RedirectError  RequestRedirect = "error"
	RedirectManual RequestRedirect = "manual"
)

const defaultReferrer = "about:client"

var standardMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {},
	"HEAD": {}, "OPTIONS": {}, "PATCH": {},
}

// RequestInit collects the optional configuration of a Request. Callers
// populate it through RequestOption values.
type RequestInit struct {
	method         *string
	headers        *Headers
	body           *ReadableStream
	mode           RequestMode
	credentials    RequestCredentials
	cache          RequestCache
	redirect       RequestRedirect
	referrer       *string
	referrerPolicy string
	integrity      string
	keepalive      bool
	signal         *AbortSignal
}

type RequestOption func(*RequestInit)

// WithMethod sets the request method. An explicitly empty method is
// rejected by NewRequest.
func WithMethod(method string) RequestOption {
	return func(o *RequestInit) { o.method = &method }
}

// WithHeaders hands h to the request. The request owns it afterwards.
func WithHeaders(h *Headers) RequestOption {
	return func(o *RequestInit) { o.headers = h }
}

func WithBody(body *ReadableStream) RequestOption {
	return func(o *RequestInit) { o.body = body }
}

func WithMode(m RequestMode) RequestOption {
	return func(o *RequestInit) { o.mode = m }
}

func WithCredentials(c RequestCredentials) RequestOption {
	return func(o *RequestInit) { o.credentials = c }
}

func WithCache(c RequestCache) RequestOption {
	return func(o *RequestInit) { o.cache = c }
}

func WithRedirect(r RequestRedirect) RequestOption {
	return func(o *RequestInit) { o.redirect = r }
}

func WithReferrer(referrer string) RequestOption {
	return func(o *RequestInit) { o.referrer = &referrer }
}

func WithReferrerPolicy(policy string) RequestOption {
	return func(o *RequestInit) { o.referrerPolicy = policy }
}

func WithIntegrity(integrity string) RequestOption {
	return func(o *RequestInit) { o.integrity = integrity }
}

func WithKeepalive(keepalive bool) RequestOption {
	return func(o *RequestInit) { o.keepalive = keepalive }
}

// WithSignal attaches a shared abort signal. The request keeps the pointer;
// it never copies the signal state.
func WithSignal(s *AbortSignal) RequestOption {
	return func(o *RequestInit) { o.signal = s }
}

// Request is a validated fetch request. It is immutable after construction
// except for the used state of its body.
type Request struct {
	url            *url.URL
	method         string
	headers        *Headers
	body           *ReadableStream
	mode           RequestMode
	credentials    RequestCredentials
	cache          RequestCache
	redirect       RequestRedirect
	referrer       string
	referrerPolicy string
	integrity      string
	keepalive      bool
	signal         *AbortSignal
}

// NewRequest validates rawURL and opts and builds a Request. Every failure
// is a TypeError.
func NewRequest(rawURL string, opts ...RequestOption) (*Request, error) {
	var o RequestInit
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	u, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, err
	}

	method := "GET"
	if o.method != nil {
		method = *o.method
	}
	method, err = normalizeMethod(method)
	if err != nil {
		return nil, err
	}
	if (method == "GET" || method == "HEAD") && o.body != nil {
		return nil, typeError("request with %s method cannot have body", method)
	}

	headers := o.headers
	if headers == nil {
		headers = NewHeaders()
	}
	if o.body != nil && !headers.Has("content-type") {
		if ct := o.body.contentType(); ct != "" {
			if err := headers.Set("content-type", ct); err != nil {
				return nil, err
			}
		}
	}

	req := &Request{
		url:            u,
		method:         method,
		headers:        headers,
		body:           o.body,
		mode:           orDefault(o.mode, ModeCors),
		credentials:    orDefault(o.credentials, CredentialsSameOrigin),
		cache:          orDefault(o.cache, CacheDefault),
		redirect:       orDefault(o.redirect, RedirectFollow),
		referrer:       defaultReferrer,
		referrerPolicy: o.referrerPolicy,
		integrity:      o.integrity,
		keepalive:      o.keepalive,
		signal:         o.signal,
	}
	if o.referrer != nil {
		req.referrer = *o.referrer
	}
	if err := req.validateEnums(); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Request) URL() string                     { return r.url.String() }
func (r *Request) Method() string                  { return r.method }
func (r *Request) Headers() *Headers               { return r.headers }
func (r *Request) Body() *ReadableStream           { return r.body }
func (r *Request) Mode() RequestMode               { return r.mode }
func (r *Request) Credentials() RequestCredentials { return r.credentials }
func (r *Request) Cache() RequestCache             { return r.cache }
func (r *Request) Redirect() RequestRedirect       { return r.redirect }
func (r *Request) Referrer() string                { return r.referrer }
func (r *Request) ReferrerPolicy() string          { return r.referrerPolicy }
func (r *Request) Integrity() string               { return r.integrity }
func (r *Request) Keepalive() bool                 { return r.keepalive }
func (r *Request) Signal() *AbortSignal            { return r.signal }

func (r *Request) BodyUsed() bool {
	return r.body != nil && r.body.Used()
}

// Clone copies the request. Headers and body are independent of the
// original; the signal is shared.
func (r *Request) Clone() (*Request, error) {
	if r.BodyUsed() {
		return nil, typeError("cannot clone a request with a used body")
	}
	c := *r
	u := *r.url
	c.url = &u
	c.headers = r.headers.Clone()
	if r.body != nil {
		body, err := r.body.clone()
		if err != nil {
			return nil, err
		}
		c.body = body
	}
	return &c, nil
}

func (r *Request) Text() (string, error) {
	if r.body == nil {
		return "", nil
	}
	return r.body.Text()
}

func (r *Request) ArrayBuffer() ([]byte, error) {
	if r.body == nil {
		return []byte{}, nil
	}
	return r.body.ArrayBuffer()
}

func (r *Request) Blob() ([]byte, error) {
	return r.ArrayBuffer()
}

func (r *Request) FormData() (string, error) {
	return r.Text()
}

func (r *Request) JSON(v any) error {
	if r.body == nil {
		return typeError("unexpected end of JSON input")
	}
	return r.body.JSON(v)
}

func (r *Request) parsedURL() *url.URL {
	return r.url
}

// takeBody detaches the body for the orchestrator. The request reports no
// body afterwards.
func (r *Request) takeBody() *ReadableStream {
	b := r.body
	r.body = nil
	return b
}

func (r *Request) validateEnums() error {
	switch r.mode {
	case ModeSameOrigin, ModeCors, ModeNoCors, ModeNavigate:
	default:
		return typeError("invalid request mode %q", r.mode)
	}
	switch r.credentials {
	case CredentialsOmit, CredentialsSameOrigin, CredentialsInclude:
	default:
		return typeError("invalid request credentials %q", r.credentials)
	}
	switch r.cache {
	case CacheDefault, CacheNoStore, CacheReload, CacheNoCache, CacheForceCache, CacheOnlyIfCached:
	default:
		return typeError("invalid request cache mode %q", r.cache)
	}
	switch r.redirect {
	case RedirectFollow, RedirectError, RedirectManual:
	default:
		return typeError("invalid request redirect mode %q", r.redirect)
	}
	return nil
}

func parseRequestURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, typeErrorWrap(err, "invalid url")
	}
	if !u.IsAbs() {
		return nil, typeError("invalid url %q: not absolute", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ws", "wss", "ftp":
		if u.Host == "" {
			return nil, typeError("invalid url %q: missing host", raw)
		}
	}
	if u.Host != "" && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u, nil
}

func normalizeMethod(method string) (string, error) {
	if !httpguts.ValidHeaderFieldName(method) {
		return "", typeError("invalid method %q", method)
	}
	upper := strings.ToUpper(method)
	if _, ok := standardMethods[upper]; ok {
		return upper, nil
	}
	return method, nil
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}
