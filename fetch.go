package fetchttp

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client runs fetches over a Transport. A Client is safe for concurrent use
// as long as its Transport is.
type Client struct {
	transport Transport
	log       logrus.FieldLogger
}

type ClientOption func(*Client)

func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMiddleware wraps the client's transport; the first middleware is the
// outermost.
func WithMiddleware(mws ...Middleware) ClientOption {
	return func(c *Client) { c.transport = Chain(c.transport, mws...) }
}

func NewClient(t Transport, opts ...ClientOption) *Client {
	c := &Client{transport: t, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch builds a Request from rawURL and opts and performs it.
func (c *Client) Fetch(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	req, err := NewRequest(rawURL, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Do performs req. The request body is handed to the transport; req reports
// no body afterwards.
//
// Failures are a TypeError for invalid input, an AbortError when req's
// signal is already aborted, or a NetworkError wrapping the transport's
// error. The signal is checked once, before the transport is contacted.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, typeError("request is nil")
	}
	if sig := req.Signal(); sig != nil && sig.Aborted() {
		reason, ok := sig.Reason()
		return nil, abortError(reason, ok)
	}
	if c.transport == nil {
		return nil, networkError(nil, "no transport configured")
	}

	var payload []byte
	if body := req.Body(); body != nil {
		b, err := body.bytes()
		if err != nil {
			return nil, err
		}
		payload = b
		req.takeBody()
	}

	log := c.log.WithFields(logrus.Fields{
		"fetch_id": uuid.NewString(),
		"method":   req.Method(),
		"url":      req.URL(),
	})
	log.Debug("fetch started")

	start := time.Now()
	res, err := c.transport.RoundTrip(ctx, &TransportRequest{
		Method:      req.Method(),
		URL:         req.parsedURL(),
		Header:      req.Headers().httpHeader(),
		Body:        payload,
		Redirect:    req.Redirect(),
		Credentials: req.Credentials(),
		Keepalive:   req.Keepalive(),
	})
	if err != nil {
		log.WithError(err).Debug("fetch failed")
		return nil, networkError(err, "perform request")
	}
	if res == nil {
		return nil, networkError(nil, "transport returned no response")
	}

	headers, skipped := headersFromHTTP(res.Header)
	if len(skipped) > 0 {
		log.WithField("headers", skipped).Debug("dropped invalid response headers")
	}
	resp := responseFromParts(res.Status, http.StatusText(res.Status), headers, req.URL(), false)
	if len(res.Body) > 0 {
		resp.setBody(BytesStream(res.Body))
	}

	log.WithFields(logrus.Fields{
		"status":  res.Status,
		"elapsed": time.Since(start),
	}).Debug("fetch completed")
	return resp, nil
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
	defaultErr    error
)

// DefaultClient returns the shared client used by Fetch, backed by
// NewHTTPTransport with default options.
func DefaultClient() (*Client, error) {
	defaultOnce.Do(func() {
		t, err := NewHTTPTransport(HTTPTransportOptions{})
		if err != nil {
			defaultErr = err
			return
		}
		defaultClient = NewClient(t)
	})
	return defaultClient, defaultErr
}

// Fetch performs a request with the default client.
func Fetch(ctx context.Context, rawURL string, opts ...RequestOption) (*Response, error) {
	c, err := DefaultClient()
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, rawURL, opts...)
}
