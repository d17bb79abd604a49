package fetchttp

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/MuntasirSZN/fetchttp/internal/httpclient"
)

// Transport performs the byte-level exchange for a fetch. Implementations
// own connection handling, TLS, redirects and timeouts.
type Transport interface {
	RoundTrip(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *TransportRequest) (*TransportResponse, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	return f(ctx, req)
}

type TransportRequest struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	Redirect    RequestRedirect
	Credentials RequestCredentials
	Keepalive   bool
}

type TransportResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// HTTPTransportOptions configures the net/http backed transport returned by
// NewHTTPTransport.
type HTTPTransportOptions struct {
	Timeout     time.Duration
	Insecure    bool
	ProxyURL    string
	RootCAs     []string
	AppendCAs   bool
	ClientCert  string
	ClientKey   string
	BaseDir     string
	HTTPVersion string
	UserAgent   string
}

type httpTransport struct {
	client *httpclient.Client
}

// NewHTTPTransport returns a Transport backed by net/http. TLS material is
// loaded eagerly so misconfiguration fails here rather than on first use.
func NewHTTPTransport(opts HTTPTransportOptions) (Transport, error) {
	hopts := httpclient.Options{
		Timeout:    opts.Timeout,
		Insecure:   opts.Insecure,
		ProxyURL:   opts.ProxyURL,
		RootCAs:    opts.RootCAs,
		ClientCert: opts.ClientCert,
		ClientKey:  opts.ClientKey,
		BaseDir:    opts.BaseDir,
		UserAgent:  opts.UserAgent,
	}
	if opts.AppendCAs {
		hopts.RootMode = httpclient.RootModeAppend
	}
	if opts.HTTPVersion != "" {
		v, ok := httpclient.ParseVersion(opts.HTTPVersion)
		if !ok {
			return nil, typeError("unsupported http version %q", opts.HTTPVersion)
		}
		hopts.HTTPVersion = v
	}
	client, err := httpclient.NewClient(hopts)
	if err != nil {
		return nil, typeErrorWrap(err, "configure http transport")
	}
	return &httpTransport{client: client}, nil
}

func (t *httpTransport) RoundTrip(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	res, err := t.client.Do(ctx, httpclient.Exchange{
		Method:   req.Method,
		URL:      req.URL,
		Header:   req.Header,
		Body:     req.Body,
		Redirect: httpclient.RedirectMode(req.Redirect),
		OmitJar:  req.Credentials == CredentialsOmit,
	})
	if err != nil {
		return nil, err
	}
	return &TransportResponse{Status: res.StatusCode, Header: res.Header, Body: res.Body}, nil
}
