package fetchttp

import "strings"

// ResponseType labels how much of a response is exposed. It is carried as
// metadata only.
type ResponseType string

const (
	ResponseBasic          ResponseType = "basic"
	ResponseCors           ResponseType = "cors"
	ResponseDefault        ResponseType = "default"
	ResponseError          ResponseType = "error"
	ResponseOpaque         ResponseType = "opaque"
	ResponseOpaqueRedirect ResponseType = "opaqueredirect"
)

var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	409: "Conflict",
	410: "Gone",
	422: "Unprocessable Entity",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

type responseInit struct {
	status     int
	statusText *string
	headers    *Headers
}

type ResponseOption func(*responseInit)

func WithStatus(status int) ResponseOption {
	return func(o *responseInit) { o.status = status }
}

// WithStatusText overrides the default reason phrase, including with "".
func WithStatusText(text string) ResponseOption {
	return func(o *responseInit) { o.statusText = &text }
}

func WithResponseHeaders(h *Headers) ResponseOption {
	return func(o *responseInit) { o.headers = h }
}

type Response struct {
	typ        ResponseType
	url        string
	redirected bool
	status     int
	statusText string
	headers    *Headers
	body       *ReadableStream
}

// NewResponse builds a basic response. Status defaults to 200 and must lie
// in [200, 599]; status text defaults to the reason phrase and must not
// contain CR or LF.
func NewResponse(body *ReadableStream, opts ...ResponseOption) (*Response, error) {
	o := responseInit{status: 200}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.status < 200 || o.status > 599 {
		return nil, typeError("invalid status code %d", o.status)
	}
	text := reasonPhrases[o.status]
	if o.statusText != nil {
		text = *o.statusText
	}
	if strings.ContainsAny(text, "\r\n") {
		return nil, typeError("invalid status text %q", text)
	}
	headers := o.headers
	if headers == nil {
		headers = NewHeaders()
	}
	return &Response{
		typ:        ResponseBasic,
		status:     o.status,
		statusText: text,
		headers:    headers,
		body:       body,
	}, nil
}

// ErrorResponse is the network-error response: type error, status 0, no
// headers and no body.
func ErrorResponse() *Response {
	return &Response{typ: ResponseError, headers: NewHeaders()}
}

// RedirectResponse builds a redirect to location. A zero status means 302.
func RedirectResponse(location string, status int) (*Response, error) {
	if status == 0 {
		status = 302
	}
	switch status {
	case 301, 302, 303, 307, 308:
	default:
		return nil, typeError("invalid redirect status %d", status)
	}
	h := NewHeaders()
	if err := h.Set("location", location); err != nil {
		return nil, err
	}
	return &Response{
		typ:        ResponseBasic,
		status:     status,
		statusText: reasonPhrases[status],
		headers:    h,
	}, nil
}

func (r *Response) Type() ResponseType    { return r.typ }
func (r *Response) URL() string           { return r.url }
func (r *Response) Redirected() bool      { return r.redirected }
func (r *Response) Status() int           { return r.status }
func (r *Response) StatusText() string    { return r.statusText }
func (r *Response) Headers() *Headers     { return r.headers }
func (r *Response) Body() *ReadableStream { return r.body }
func (r *Response) Ok() bool              { return r.status >= 200 && r.status < 300 }
func (r *Response) BodyUsed() bool        { return r.body != nil && r.body.Used() }

func (r *Response) Clone() (*Response, error) {
	if r.BodyUsed() {
		return nil, typeError("cannot clone a response with a used body")
	}
	c := *r
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

func (r *Response) Text() (string, error) {
	if r.body == nil {
		return "", nil
	}
	return r.body.Text()
}

func (r *Response) ArrayBuffer() ([]byte, error) {
	if r.body == nil {
		return []byte{}, nil
	}
	return r.body.ArrayBuffer()
}

func (r *Response) Blob() ([]byte, error) {
	return r.ArrayBuffer()
}

func (r *Response) FormData() (string, error) {
	return r.Text()
}

func (r *Response) JSON(v any) error {
	if r.body == nil {
		return typeError("unexpected end of JSON input")
	}
	return r.body.JSON(v)
}

// responseFromParts assembles a response from transport output. Only the
// orchestrator calls it; the status is taken as-is.
func responseFromParts(status int, statusText string, headers *Headers, url string, redirected bool) *Response {
	return &Response{
		typ:        ResponseBasic,
		url:        url,
		redirected: redirected,
		status:     status,
		statusText: statusText,
		headers:    headers,
	}
}

func (r *Response) setBody(body *ReadableStream) {
	r.body = body
}
