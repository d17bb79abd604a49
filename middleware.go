package fetchttp

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Middleware decorates a Transport. Middlewares run inside the transport
// step of a fetch, so validation and abort checks happen before them.
type Middleware func(Transport) Transport

// Chain wraps t so that mws[0] sees the request first.
func Chain(t Transport, mws ...Middleware) Transport {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			t = mws[i](t)
		}
	}
	return t
}

func LoggingMiddleware(log logrus.FieldLogger) Middleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
			start := time.Now()
			entry := log.WithFields(logrus.Fields{
				"method": req.Method,
				"url":    req.URL.String(),
				"bytes":  len(req.Body),
			})
			res, err := next.RoundTrip(ctx, req)
			entry = entry.WithField("elapsed", time.Since(start))
			if err != nil {
				entry.WithError(err).Warn("round trip failed")
				return nil, err
			}
			if res == nil {
				entry.Warn("round trip returned no response")
				return nil, nil
			}
			entry.WithField("status", res.Status).Info("round trip")
			return res, nil
		})
	}
}

// TracingMiddleware records one client span per round trip.
func TracingMiddleware(tracer trace.Tracer) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
			ctx, span := tracer.Start(ctx, "HTTP "+req.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.full", req.URL.String()),
					attribute.String("fetch.redirect", string(req.Redirect)),
				),
			)
			defer span.End()

			res, err := next.RoundTrip(ctx, req)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			if res == nil {
				span.SetStatus(codes.Error, "no response")
				return nil, nil
			}
			span.SetAttributes(
				attribute.Int("http.response.status_code", res.Status),
				attribute.Int("http.response.body.size", len(res.Body)),
			)
			if res.Status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			return res, nil
		})
	}
}

// RateLimitMiddleware blocks each round trip until lim grants a token. A
// wait cut short by ctx fails the round trip.
func RateLimitMiddleware(lim *rate.Limiter) Middleware {
	return func(next Transport) Transport {
		return TransportFunc(func(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
			if err := lim.Wait(ctx); err != nil {
				return nil, err
			}
			return next.RoundTrip(ctx, req)
		})
	}
}
