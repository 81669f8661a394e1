// Package provider – Gateway
//
// The Gateway is the only caller of a Provider in the service. It enforces
// the per-call timeout across all attempts, throttles when configured,
// retries transient failures with capped exponential backoff and decodes the
// reply into a payload.
package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-translate-backend/internal/content"
)

var (
	providerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translator_provider_calls_total",
			Help: "Provider attempts by outcome (ok, retry, rejected, exhausted).",
		},
		[]string{"provider", "outcome"},
	)
	providerLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translator_provider_call_duration_seconds",
			Help:    "Duration of single provider attempts in seconds.",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(providerCalls, providerLat)
}

// RetryPolicy bounds the retry loop. Delay before attempt n (n >= 2) is
// Delay * Multiplier^(n-2), capped at MaxDelay when MaxDelay > 0.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// Backoff returns the wait before the given attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 1 || p.Delay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := time.Duration(float64(p.Delay) * math.Pow(mult, float64(attempt-2)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Payload is the outcome of a successful gateway call.
type Payload struct {
	Value    content.Value // Structured when the reply is a JSON object, Text otherwise
	Raw      string
	Provider string
	Model    string
	Usage    Usage
	Attempts int
}

// Gateway calls a Provider with an overall timeout and bounded retries.
type Gateway struct {
	Provider Provider
	Policy   RetryPolicy
	Timeout  time.Duration
	Limiter  *rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
}

// NewGateway builds a Gateway. rps <= 0 disables client-side throttling.
func NewGateway(p Provider, policy RetryPolicy, timeout time.Duration, rps float64) *Gateway {
	g := &Gateway{Provider: p, Policy: policy, Timeout: timeout}
	if rps > 0 {
		burst := int(math.Ceil(rps))
		g.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return g
}

// Call sends req to the provider. Transient failures are retried up to
// Policy.MaxAttempts; a rejected request is returned at once wrapped in
// ErrBadRequest, and exhausted retries are reported as ErrUnavailable.
func (g *Gateway) Call(ctx context.Context, req Request) (Payload, error) {
	name := g.Provider.Name()
	tr := otel.Tracer("provider/Gateway")
	ctx, span := tr.Start(ctx, "Call",
		trace.WithAttributes(
			attribute.String("provider.name", name),
			attribute.String("provider.model", g.Provider.Model()),
			attribute.Int("prompt.bytes", len(req.Prompt)),
		),
	)
	defer span.End()

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	max := g.Policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= max; attempt++ {
		if wait := g.Policy.Backoff(attempt); wait > 0 {
			if err := g.wait(ctx, wait); err != nil {
				lastErr = err
				break
			}
		}
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		start := time.Now()
		comp, err := g.Provider.Complete(ctx, req)
		providerLat.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err == nil {
			providerCalls.WithLabelValues(name, "ok").Inc()
			span.SetAttributes(attribute.Int("provider.attempts", attempt))
			model := comp.Model
			if model == "" {
				model = g.Provider.Model()
			}
			return Payload{
				Value:    decodePayload(comp.Content),
				Raw:      comp.Content,
				Provider: name,
				Model:    model,
				Usage:    comp.Usage,
				Attempts: attempt,
			}, nil
		}

		lastErr = err
		if !Retryable(err) {
			providerCalls.WithLabelValues(name, "rejected").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "rejected")
			if errors.Is(err, context.Canceled) {
				return Payload{}, err
			}
			return Payload{}, fmt.Errorf("%s: %w", name, err)
		}
		providerCalls.WithLabelValues(name, "retry").Inc()
		log.Warn().
			Err(err).
			Str("provider", name).
			Str("model", g.Provider.Model()).
			Int("attempt", attempt).
			Int("max_attempts", max).
			Msg("provider attempt failed")
		if ctx.Err() != nil {
			break
		}
	}

	providerCalls.WithLabelValues(name, "exhausted").Inc()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "exhausted")
	return Payload{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, name, lastErr)
}

func (g *Gateway) wait(ctx context.Context, d time.Duration) error {
	if g.sleep != nil {
		return g.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// decodePayload returns a Structured value when s is exactly one JSON object
// and a Text value otherwise; repair of malformed replies is left to the
// normalizer.
func decodePayload(s string) content.Value {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "{") {
		if v, err := content.FromJSON([]byte(trimmed)); err == nil && v.IsStructured() {
			return v
		}
	}
	return content.Text(s)
}
