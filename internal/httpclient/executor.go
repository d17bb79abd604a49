package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/publicsuffix"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
)

const maxRedirects = 20

type Options struct {
	Timeout     time.Duration
	Insecure    bool
	ProxyURL    string
	RootCAs     []string
	RootMode    RootMode
	ClientCert  string
	ClientKey   string
	BaseDir     string
	HTTPVersion Version
	UserAgent   string
}

type RedirectMode string

const (
	RedirectFollow RedirectMode = "follow"
	RedirectError  RedirectMode = "error"
	RedirectManual RedirectMode = "manual"
)

// Exchange is one request as handed over by the fetch layer.
type Exchange struct {
	Method   string
	URL      *url.URL
	Header   http.Header
	Body     []byte
	Redirect RedirectMode
	// OmitJar sends the request without consulting or updating the cookie jar.
	OmitJar bool
}

type Result struct {
	Status       string
	StatusCode   int
	Proto        string
	Header       http.Header
	Body         []byte
	Duration     time.Duration
	EffectiveURL string
}

// Client executes exchanges over one shared http.Transport so connections
// are pooled across fetches.
type Client struct {
	opts      Options
	transport *http.Transport
	jar       http.CookieJar
}

func NewClient(opts Options) (*Client, error) {
	transport, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "create cookie jar")
	}
	return &Client{opts: opts, transport: transport, jar: jar}, nil
}

func (c *Client) Do(ctx context.Context, ex Exchange) (*Result, error) {
	httpReq, err := c.buildRequest(ctx, ex)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport:     c.transport,
		CheckRedirect: redirectPolicy(ex.Redirect),
		Timeout:       c.opts.Timeout,
	}
	if !ex.OmitJar {
		client.Jar = c.jar
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "perform request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "read response body")
	}
	if err := checkHTTPVersion(resp, c.opts.HTTPVersion); err != nil {
		return nil, err
	}

	effective := ex.URL.String()
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}
	return &Result{
		Status:       resp.Status,
		StatusCode:   resp.StatusCode,
		Proto:        resp.Proto,
		Header:       resp.Header.Clone(),
		Body:         body,
		Duration:     duration,
		EffectiveURL: effective,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, ex Exchange) (*http.Request, error) {
	if ex.URL == nil {
		return nil, errdef.New(errdef.CodeTransport, "request url is nil")
	}
	var body io.Reader
	if len(ex.Body) > 0 {
		body = bytes.NewReader(ex.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, ex.Method, ex.URL.String(), body)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeTransport, err, "build request")
	}

	// Add canonicalizes names, which keeps net/http's handling of Host and
	// the framing headers intact.
	for name, values := range ex.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}
	if c.opts.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}

	applyHTTPVersion(httpReq, c.opts.HTTPVersion)
	if err := checkHTTPVersionRequest(httpReq, c.opts.HTTPVersion); err != nil {
		return nil, err
	}
	return httpReq, nil
}

func buildTransport(opts Options) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}

	if strings.TrimSpace(opts.ProxyURL) != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeTransport, err, "parse proxy url")
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if opts.Insecure || len(opts.RootCAs) > 0 || opts.ClientCert != "" || opts.ClientKey != "" {
		tc, err := buildTLS(opts)
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = tc
	}

	switch opts.HTTPVersion {
	case V2:
		if err := http2.ConfigureTransport(transport); err != nil {
			return nil, errdef.Wrap(errdef.CodeTransport, err, "configure http2")
		}
	case V10, V11:
		// A non-nil empty map disables the automatic h2 upgrade.
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	default:
		transport.ForceAttemptHTTP2 = true
	}
	return transport, nil
}

func redirectPolicy(mode RedirectMode) func(*http.Request, []*http.Request) error {
	switch mode {
	case RedirectManual:
		return func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case RedirectError:
		return func(req *http.Request, _ []*http.Request) error {
			return errdef.New(errdef.CodeTransport, "redirect to %s refused by redirect mode", req.URL)
		}
	default:
		return func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errdef.New(errdef.CodeTransport, "stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}
}
