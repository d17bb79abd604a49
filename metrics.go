package fetchttp

import (
	"context"
	stdErrors "errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type transportMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// MetricsMiddleware counts round trips and observes their latency on reg.
// Collectors already registered on reg are reused, so several clients may
// share one registry.
func MetricsMiddleware(reg prometheus.Registerer) (Middleware, error) {
	m := &transportMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fetchttp",
			Name:      "round_trips_total",
			Help:      "Transport round trips by method and outcome.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fetchttp",
			Name:      "round_trip_duration_seconds",
			Help:      "Transport round trip latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}

	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
			start := time.Now()
			res, err := next.RoundTrip(ctx, req)
			m.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
			code := "error"
			if err == nil && res != nil {
				code = strconv.Itoa(res.Status)
			}
			m.requests.WithLabelValues(req.Method, code).Inc()
			return res, err
		})
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stdErrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, typeErrorWrap(err, "register metrics")
	}
	return c, nil
}
