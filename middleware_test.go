package fetchttp

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/time/rate"
)

func recordingTransport(order *[]string, name string, next Transport) Transport {
	return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
		*order = append(*order, name)
		return next.RoundTrip(ctx, req)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	base := TransportFunc(func(context.Context, *TransportRequest) (*TransportResponse, error) {
		order = append(order, "base")
		return &TransportResponse{Status: 200}, nil
	})
	mw := func(name string) Middleware {
		return func(next Transport) Transport { return recordingTransport(&order, name, next) }
	}

	tr := Chain(base, mw("outer"), nil, mw("inner"))
	_, err := tr.RoundTrip(context.Background(), &TransportRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
}

func TestMiddlewareRunsAfterAbortCheck(t *testing.T) {
	var hit bool
	mw := func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
			hit = true
			return next.RoundTrip(ctx, req)
		})
	}
	stub := &stubTransport{res: &TransportResponse{Status: 200}}
	c := NewClient(stub, WithLogger(quietLogger()), WithMiddleware(mw))

	_, err := c.Fetch(context.Background(), "https://api.test/x", WithSignal(AbortedSignal()))
	assert.True(t, IsAbortError(err))
	assert.False(t, hit)

	_, err = c.Fetch(context.Background(), "https://api.test/x")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestLoggingMiddleware(t *testing.T) {
	log, hook := test.NewNullLogger()
	u, _ := url.Parse("https://api.test/x")

	ok := LoggingMiddleware(log)(&stubTransport{res: &TransportResponse{Status: 204}})
	_, err := ok.RoundTrip(context.Background(), &TransportRequest{Method: "GET", URL: u})
	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, 204, entry.Data["status"])

	failing := LoggingMiddleware(log)(&stubTransport{err: errors.New("boom")})
	_, err = failing.RoundTrip(context.Background(), &TransportRequest{Method: "GET", URL: u})
	require.Error(t, err)
	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "round trip failed", entry.Message)
}

func TestTracingMiddleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	stub := &stubTransport{res: &TransportResponse{Status: 503, Body: []byte("down")}}
	c := NewClient(stub, WithLogger(quietLogger()), WithMiddleware(TracingMiddleware(tp.Tracer("test"))))
	_, err := c.Fetch(context.Background(), "https://api.test/x", WithMethod("DELETE"))
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP DELETE", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Attributes(), attribute.String("http.request.method", "DELETE"))
	assert.Contains(t, span.Attributes(), attribute.String("url.full", "https://api.test/x"))
	assert.Contains(t, span.Attributes(), attribute.Int("http.response.status_code", 503))

	stub.res, stub.err = nil, errors.New("reset")
	_, err = c.Fetch(context.Background(), "https://api.test/x")
	assert.True(t, IsNetworkError(err))
	spans = rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestRateLimitMiddleware(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(time.Hour), 1)
	stub := &stubTransport{res: &TransportResponse{Status: 200}}
	c := NewClient(stub, WithLogger(quietLogger()), WithMiddleware(RateLimitMiddleware(lim)))

	_, err := c.Fetch(context.Background(), "https://api.test/x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, "https://api.test/x")
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestMiddlewaresHandleNilResponse(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	metrics, err := MetricsMiddleware(prometheus.NewRegistry())
	require.NoError(t, err)

	empty := TransportFunc(func(context.Context, *TransportRequest) (*TransportResponse, error) {
		return nil, nil
	})
	cases := map[string]Middleware{
		"logging": LoggingMiddleware(quietLogger()),
		"tracing": TracingMiddleware(tp.Tracer("test")),
		"metrics": metrics,
	}
	for name, mw := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewClient(empty, WithLogger(quietLogger()), WithMiddleware(mw))
			require.NotPanics(t, func() {
				_, err := c.Fetch(context.Background(), "https://api.test/x")
				assert.True(t, IsNetworkError(err))
			})
		})
	}

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
