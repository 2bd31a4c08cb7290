package runner

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"salvo/internal/request"
	"salvo/internal/session"
	"salvo/internal/transport"
)

// Policy configures the retry and pacing behavior of an Executor.
type Policy struct {
	// Retries is the number of additional attempts after the first. Only
	// transport failures consume the budget; HTTP statuses never retry.
	Retries int
	// BackoffBase is doubled per retry: base before the 2nd attempt, 2*base
	// before the 3rd, and so on. No jitter.
	BackoffBase time.Duration
	// Delay paces every attempt, including the first.
	Delay time.Duration
}

// Executor drives one target through the attempt state machine to a terminal
// Outcome. Requests are rebuilt fresh for every attempt.
type Executor struct {
	Builder   *request.Builder
	Transport transport.Transport
	Policy    Policy
	Logger    zerolog.Logger
	Tracer    trace.Tracer // optional; nil disables spans
	Propagate bool         // inject W3C trace context into outgoing requests
}

// Execute runs the retry loop for a single target. It always returns an
// Outcome; cancellation surfaces as a failure carrying the context error.
func (e *Executor) Execute(ctx context.Context, tgt session.Target) Outcome {
	var lastErr error
	for attempt := 0; attempt <= e.Policy.Retries; attempt++ {
		if attempt > 0 && e.Policy.BackoffBase > 0 {
			backoff := e.Policy.BackoffBase << uint(attempt-1)
			if err := sleepCtx(ctx, backoff); err != nil {
				return Outcome{Name: tgt.Name, Err: err.Error()}
			}
		}
		if e.Policy.Delay > 0 {
			if err := sleepCtx(ctx, e.Policy.Delay); err != nil {
				return Outcome{Name: tgt.Name, Err: err.Error()}
			}
		}

		resp, err := e.attempt(ctx, tgt, attempt)
		if err == nil {
			return Outcome{
				Name:      tgt.Name,
				Status:    resp.StatusCode,
				ElapsedMs: roundMs(resp.Elapsed),
				Headers:   flattenHeader(resp),
				Body:      resp.Body,
			}
		}
		lastErr = err

		if ctx.Err() != nil {
			return Outcome{Name: tgt.Name, Err: ctx.Err().Error()}
		}
		if attempt < e.Policy.Retries {
			e.Logger.Debug().
				Str("target", tgt.Name).
				Int("attempt", attempt+1).
				Err(err).
				Msg("attempt failed, retrying")
		}
	}

	e.Logger.Debug().Str("target", tgt.Name).Err(lastErr).Msg("retries exhausted")
	return Outcome{Name: tgt.Name, Err: lastErr.Error()}
}

// attempt performs one transport call under its own span.
func (e *Executor) attempt(ctx context.Context, tgt session.Target, attempt int) (*transport.Response, error) {
	tracer := e.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("salvo")
	}
	ctx, span := tracer.Start(ctx, "salvo.attempt", trace.WithAttributes(
		attribute.String("salvo.target", tgt.Name),
		attribute.Int("salvo.attempt", attempt+1),
	))
	defer span.End()

	req, err := e.Builder.Build(ctx, tgt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, err
	}

	if e.Propagate {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	resp, err := e.Transport.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

// sleepCtx blocks for the given duration or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func roundMs(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

func flattenHeader(resp *transport.Response) map[string]string {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}
	return headers
}
