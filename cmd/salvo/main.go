package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"salvo/internal/config"
	"salvo/internal/logging"
	"salvo/internal/metrics"
	"salvo/internal/output"
	"salvo/internal/request"
	"salvo/internal/runner"
	"salvo/internal/session"
	"salvo/internal/sink"
	"salvo/internal/tracing"
	"salvo/internal/transport"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFile)

	targets, err := session.Load(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	builder, err := request.NewBuilder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	httpTransport, err := transport.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		_ = provider.Shutdown(context.Background())
	}()

	runID := ulid.Make().String()
	logger.Info().
		Str("run_id", runID).
		Int("targets", len(targets)).
		Int("concurrency", cfg.Concurrency).
		Str("transport", string(cfg.Transport)).
		Msg("starting run")

	resultSink := sink.New(sink.Options{
		Console:    os.Stdout,
		OutputPath: cfg.OutputPath,
		SaveDir:    cfg.SaveDir,
		SaveBody:   cfg.SaveBody,
		Logger:     logger,
	})
	collector := metrics.NewCollector()

	executor := &runner.Executor{
		Builder:   builder,
		Transport: httpTransport,
		Policy: runner.Policy{
			Retries:     cfg.Retries,
			BackoffBase: cfg.Backoff,
			Delay:       cfg.Delay,
		},
		Logger:    logger,
		Tracer:    provider.Tracer(),
		Propagate: provider.ShouldPropagate(),
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate)
	}

	dispatcher := &runner.Dispatcher{
		Concurrency: cfg.Concurrency,
		Executor:    executor,
		Sink:        resultSink,
		Limiter:     limiter,
		Collector:   collector,
		Logger:      logger,
	}

	collector.Start()
	summary := dispatcher.Run(ctx, targets)

	// Flush even after an interrupt: outcomes already produced are preserved.
	if err := resultSink.Flush(); err != nil {
		logger.Error().Err(err).Msg("flush results")
	}

	stats := collector.Stats(collector.Elapsed())
	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, runID, stats); err != nil {
			logger.Error().Err(err).Msg("print report")
		}
	} else {
		output.PrintReport(os.Stdout, runID, stats)
	}

	if ctx.Err() != nil {
		logger.Warn().Str("run_id", runID).Msg("interrupted")
		return exitInterrupted
	}

	logger.Info().
		Str("run_id", runID).
		Int64("completed", summary.Total).
		Int64("failed", summary.Failures).
		Dur("duration", summary.Duration).
		Msg("run complete")
	return exitOK
}
