package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"salvo/internal/metrics"
	"salvo/internal/session"
)

// Sink consumes outcomes as they complete. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(Outcome)
}

// Summary captures the dispatch totals for a run.
type Summary struct {
	Total    int64
	Failures int64
	Duration time.Duration
}

// Dispatcher runs all targets to completion over a fixed-size worker pool.
// The pool size is the sole backpressure mechanism; completions are handed to
// the sink in whatever order they occur.
type Dispatcher struct {
	Concurrency int
	Executor    *Executor
	Sink        Sink
	Limiter     *rate.Limiter // optional global RPS cap
	Collector   *metrics.Collector
	Logger      zerolog.Logger
}

// Run drains the targets through the worker pool. Cancellation stops new
// targets from starting; workers finish the attempt they are on.
func (d *Dispatcher) Run(ctx context.Context, targets []session.Target) Summary {
	start := time.Now()

	concurrency := d.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	queue := make(chan session.Target)
	go func() {
		defer close(queue)
		for _, tgt := range targets {
			select {
			case queue <- tgt:
			case <-ctx.Done():
				return
			}
		}
	}()

	var total, failures int64
	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for tgt := range queue {
				if ctx.Err() != nil {
					return
				}
				if d.Limiter != nil {
					if err := d.Limiter.Wait(ctx); err != nil {
						return
					}
				}

				outcome := d.execute(ctx, tgt)
				atomic.AddInt64(&total, 1)
				if outcome.Failed() {
					atomic.AddInt64(&failures, 1)
				}
				d.record(outcome)
			}
		}()
	}
	wg.Wait()

	return Summary{
		Total:    atomic.LoadInt64(&total),
		Failures: atomic.LoadInt64(&failures),
		Duration: time.Since(start),
	}
}

// execute isolates one target: an unexpected fault inside its processing is
// converted into a failed outcome instead of aborting the run.
func (d *Dispatcher) execute(ctx context.Context, tgt session.Target) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error().Str("target", tgt.Name).Interface("panic", r).Msg("recovered dispatch fault")
			outcome = Outcome{Name: tgt.Name, Err: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return d.Executor.Execute(ctx, tgt)
}

func (d *Dispatcher) record(outcome Outcome) {
	if d.Collector != nil {
		latency := time.Duration(outcome.ElapsedMs * float64(time.Millisecond))
		var err error
		if outcome.Failed() {
			err = errors.New(outcome.Err)
		}
		d.Collector.RecordRequest(latency, err)
	}
	if d.Sink != nil {
		d.Sink.Record(outcome)
	}
}
