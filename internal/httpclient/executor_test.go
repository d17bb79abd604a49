package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url %q: %v", raw, err)
	}
	return u
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestDoSendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Echo", r.Header.Get("X-Token"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := newTestClient(t, Options{})
	res, err := c.Do(context.Background(), Exchange{
		Method: "POST",
		URL:    mustURL(t, srv.URL+"/items"),
		Header: http.Header{"x-token": {"abc"}},
		Body:   []byte("payload"),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if got := res.Header.Get("X-Echo"); got != "abc" {
		t.Fatalf("expected lowercase request header to reach server, got %q", got)
	}
	if got := res.Header.Get("X-Method"); got != "POST" {
		t.Fatalf("unexpected method %q", got)
	}
	if string(res.Body) != "payload" {
		t.Fatalf("unexpected body %q", res.Body)
	}
}

func TestDoAppliesDefaultUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.UserAgent())
	}))
	defer srv.Close()

	c := newTestClient(t, Options{UserAgent: "fetchttp-test/1"})
	res, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, srv.URL)})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(res.Body) != "fetchttp-test/1" {
		t.Fatalf("expected default user agent, got %q", res.Body)
	}

	res, err = c.Do(context.Background(), Exchange{
		Method: "GET",
		URL:    mustURL(t, srv.URL),
		Header: http.Header{"user-agent": {"custom"}},
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if string(res.Body) != "custom" {
		t.Fatalf("expected caller user agent to win, got %q", res.Body)
	}
}

func redirectServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "final")
	})
	return httptest.NewServer(mux)
}

func TestRedirectFollow(t *testing.T) {
	srv := redirectServer()
	defer srv.Close()

	c := newTestClient(t, Options{})
	res, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/start"), Redirect: RedirectFollow})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != "final" {
		t.Fatalf("expected followed redirect, got %d %q", res.StatusCode, res.Body)
	}
	if !strings.HasSuffix(res.EffectiveURL, "/final") {
		t.Fatalf("unexpected effective url %s", res.EffectiveURL)
	}
}

func TestRedirectManual(t *testing.T) {
	srv := redirectServer()
	defer srv.Close()

	c := newTestClient(t, Options{})
	res, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/start"), Redirect: RedirectManual})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusFound {
		t.Fatalf("expected 302 to be returned as-is, got %d", res.StatusCode)
	}
	if res.Header.Get("Location") != "/final" {
		t.Fatalf("unexpected location %q", res.Header.Get("Location"))
	}
}

func TestRedirectError(t *testing.T) {
	srv := redirectServer()
	defer srv.Close()

	c := newTestClient(t, Options{})
	_, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/start"), Redirect: RedirectError})
	if err == nil {
		t.Fatalf("expected redirect to fail")
	}
	if !errdef.Is(err, errdef.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "refused by redirect mode") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOmitJarSkipsCookies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42", Path: "/"})
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("Cookie"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, Options{})
	ctx := context.Background()
	if _, err := c.Do(ctx, Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/set")}); err != nil {
		t.Fatalf("set cookie: %v", err)
	}

	res, err := c.Do(ctx, Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/echo")})
	if err != nil {
		t.Fatalf("echo: %v", err)
	}
	if string(res.Body) != "sid=42" {
		t.Fatalf("expected jar cookie, got %q", res.Body)
	}

	res, err = c.Do(ctx, Exchange{Method: "GET", URL: mustURL(t, srv.URL+"/echo"), OmitJar: true})
	if err != nil {
		t.Fatalf("echo omit: %v", err)
	}
	if len(res.Body) != 0 {
		t.Fatalf("expected no cookie when jar omitted, got %q", res.Body)
	}
}

func TestDoWrapsConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, Options{})
	_, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, addr)})
	if err == nil {
		t.Fatalf("expected connection failure")
	}
	if !errdef.Is(err, errdef.CodeTransport) {
		t.Fatalf("expected transport code, got %v", err)
	}
}

func TestDoRejectsNilURL(t *testing.T) {
	c := newTestClient(t, Options{})
	if _, err := c.Do(context.Background(), Exchange{Method: "GET"}); err == nil {
		t.Fatalf("expected error for nil url")
	}
}

func TestHTTP2RequiresHTTPS(t *testing.T) {
	c := newTestClient(t, Options{HTTPVersion: V2})
	_, err := c.Do(context.Background(), Exchange{Method: "GET", URL: mustURL(t, "http://example.com")})
	if err == nil {
		t.Fatalf("expected error for http version 2 over http")
	}
	if !strings.Contains(err.Error(), "requires https") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"", VersionAuto, true},
		{"auto", VersionAuto, true},
		{"1.0", V10, true},
		{"HTTP/1.1", V11, true},
		{"2", V2, true},
		{"http/2.0", V2, true},
		{"3", VersionAuto, false},
	}
	for _, tc := range cases {
		got, ok := ParseVersion(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseVersion(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBuildTLSRequiresKeyPair(t *testing.T) {
	_, err := NewClient(Options{ClientCert: "client.pem"})
	if err == nil {
		t.Fatalf("expected error when key is missing")
	}
	if !errdef.Is(err, errdef.CodeTLS) {
		t.Fatalf("expected tls code, got %v", err)
	}
}

func TestBuildTLSMissingRootCA(t *testing.T) {
	_, err := NewClient(Options{RootCAs: []string{"missing.pem"}, BaseDir: t.TempDir()})
	if err == nil {
		t.Fatalf("expected error for missing ca file")
	}
	if !errdef.Is(err, errdef.CodeFilesystem) {
		t.Fatalf("expected filesystem code, got %v", err)
	}
}

func TestInvalidProxyURL(t *testing.T) {
	_, err := NewClient(Options{ProxyURL: "://bad"})
	if err == nil {
		t.Fatalf("expected proxy parse error")
	}
}
