package fetchttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestDefaults(t *testing.T) {
	req, err := NewRequest("https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/", req.URL())
	assert.Equal(t, "GET", req.Method())
	assert.Equal(t, ModeCors, req.Mode())
	assert.Equal(t, CredentialsSameOrigin, req.Credentials())
	assert.Equal(t, CacheDefault, req.Cache())
	assert.Equal(t, RedirectFollow, req.Redirect())
	assert.Equal(t, "about:client", req.Referrer())
	assert.Empty(t, req.ReferrerPolicy())
	assert.Empty(t, req.Integrity())
	assert.False(t, req.Keepalive())
	assert.Nil(t, req.Signal())
	assert.Nil(t, req.Body())
	assert.False(t, req.BodyUsed())
	assert.Equal(t, 0, req.Headers().Len())
}

func TestNewRequestRejects(t *testing.T) {
	cases := []struct {
		name string
		url  string
		opts []RequestOption
	}{
		{"relative url", "/api/x", nil},
		{"garbage url", "://nope", nil},
		{"http without host", "http://", nil},
		{"empty method", "https://example.com", []RequestOption{WithMethod("")}},
		{"method with space", "https://example.com", []RequestOption{WithMethod("GE T")}},
		{"method with nul", "https://example.com", []RequestOption{WithMethod("GE\x00T")}},
		{"method with crlf", "https://example.com", []RequestOption{WithMethod("GET\r\n")}},
		{"method with tab", "https://example.com", []RequestOption{WithMethod("GET\t")}},
		{"get with body", "https://example.com", []RequestOption{WithBody(TextStream("x"))}},
		{"head with body", "https://example.com", []RequestOption{WithMethod("head"), WithBody(EmptyStream())}},
		{"bad mode", "https://example.com", []RequestOption{WithMode("websocket")}},
		{"bad credentials", "https://example.com", []RequestOption{WithCredentials("always")}},
		{"bad cache", "https://example.com", []RequestOption{WithCache("forever")}},
		{"bad redirect", "https://example.com", []RequestOption{WithRedirect("loop")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRequest(tc.url, tc.opts...)
			require.Error(t, err)
			assert.True(t, IsTypeError(err), "got %v", err)
		})
	}
}

func TestNewRequestMethodCase(t *testing.T) {
	req, err := NewRequest("https://example.com", WithMethod("post"), WithBody(TextStream("x")))
	require.NoError(t, err)
	assert.Equal(t, "POST", req.Method())

	req, err = NewRequest("https://example.com", WithMethod("Purge"))
	require.NoError(t, err)
	assert.Equal(t, "Purge", req.Method())
}

func TestNewRequestContentType(t *testing.T) {
	req, err := NewRequest("https://example.com", WithMethod("POST"), WithBody(TextStream("hi")))
	require.NoError(t, err)
	ct, _ := req.Headers().Get("content-type")
	assert.Equal(t, "text/plain;charset=UTF-8", ct)

	req, err = NewRequest("https://example.com", WithMethod("PUT"), WithBody(JSONStream(map[string]int{"a": 1})))
	require.NoError(t, err)
	ct, _ = req.Headers().Get("Content-Type")
	assert.Equal(t, "application/json", ct)

	h := NewHeaders()
	require.NoError(t, h.Set("Content-Type", "application/xml"))
	req, err = NewRequest("https://example.com", WithMethod("POST"), WithHeaders(h), WithBody(TextStream("<a/>")))
	require.NoError(t, err)
	ct, _ = req.Headers().Get("content-type")
	assert.Equal(t, "application/xml", ct)

	req, err = NewRequest("https://example.com", WithMethod("POST"), WithBody(BytesStream([]byte{1})))
	require.NoError(t, err)
	assert.False(t, req.Headers().Has("content-type"))
}

func TestNewRequestOptions(t *testing.T) {
	sig := NewAbortSignal()
	req, err := NewRequest("https://example.com/a?b=c",
		WithMode(ModeSameOrigin),
		WithCredentials(CredentialsOmit),
		WithCache(CacheNoStore),
		WithRedirect(RedirectManual),
		WithReferrer(""),
		WithReferrerPolicy("no-referrer"),
		WithIntegrity("sha256-abc"),
		WithKeepalive(true),
		WithSignal(sig),
	)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a?b=c", req.URL())
	assert.Equal(t, ModeSameOrigin, req.Mode())
	assert.Equal(t, CredentialsOmit, req.Credentials())
	assert.Equal(t, CacheNoStore, req.Cache())
	assert.Equal(t, RedirectManual, req.Redirect())
	assert.Empty(t, req.Referrer())
	assert.Equal(t, "no-referrer", req.ReferrerPolicy())
	assert.Equal(t, "sha256-abc", req.Integrity())
	assert.True(t, req.Keepalive())
	assert.Same(t, sig, req.Signal())
}

func TestRequestBodyConsumers(t *testing.T) {
	req, err := NewRequest("https://example.com")
	require.NoError(t, err)
	text, err := req.Text()
	require.NoError(t, err)
	assert.Empty(t, text)
	var v any
	assert.True(t, IsTypeError(req.JSON(&v)))

	req, err = NewRequest("https://example.com", WithMethod("POST"), WithBody(TextStream(`{"ok":true}`)))
	require.NoError(t, err)
	var got struct{ OK bool }
	require.NoError(t, req.JSON(&got))
	assert.True(t, got.OK)
	assert.True(t, req.BodyUsed())

	_, err = req.Text()
	assert.ErrorIs(t, err, ErrBodyUsed)
}

func TestRequestClone(t *testing.T) {
	req, err := NewRequest("https://example.com", WithMethod("POST"), WithBody(TextStream("payload")))
	require.NoError(t, err)

	clone, err := req.Clone()
	require.NoError(t, err)
	require.NoError(t, clone.Headers().Set("x-only-clone", "1"))
	assert.False(t, req.Headers().Has("x-only-clone"))

	text, err := clone.Text()
	require.NoError(t, err)
	assert.Equal(t, "payload", text)
	assert.False(t, req.BodyUsed())

	text, err = req.Text()
	require.NoError(t, err)
	assert.Equal(t, "payload", text)

	_, err = req.Clone()
	assert.True(t, IsTypeError(err))
}

func TestRequestCloneJSONBodyIndependent(t *testing.T) {
	payload := map[string][]int{"ids": {1, 2}}
	req, err := NewRequest("https://example.com", WithMethod("POST"), WithBody(JSONStream(payload)))
	require.NoError(t, err)

	clone, err := req.Clone()
	require.NoError(t, err)
	payload["ids"][0] = 99
	payload["extra"] = nil

	text, err := clone.Text()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":[1,2]}`, text)
	ct, _ := clone.Headers().Get("content-type")
	assert.Equal(t, "application/json", ct)

	bad, err := NewRequest("https://example.com", WithMethod("POST"), WithBody(JSONStream(make(chan int))))
	require.NoError(t, err)
	_, err = bad.Clone()
	assert.True(t, IsTypeError(err))
}
