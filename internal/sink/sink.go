// Package sink persists outcomes and serializes console reporting.
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"salvo/internal/runner"
)

const maxFileNameLen = 128

// Sink records outcomes in completion order, writes the optional per-target
// files, and owns the mutex that keeps console lines whole. It is safe for
// concurrent use by all workers.
type Sink struct {
	mu       sync.Mutex
	console  io.Writer
	output   string
	saveDir  string
	saveBody bool
	logger   zerolog.Logger
	outcomes []runner.Outcome
}

// Options configure a Sink.
type Options struct {
	Console    io.Writer // per-completion lines; defaults to io.Discard
	OutputPath string    // aggregate JSON Lines file, empty disables
	SaveDir    string    // per-target file directory, empty disables
	SaveBody   bool      // also write response bodies under SaveDir
	Logger     zerolog.Logger
}

// New creates a Sink from options.
func New(opts Options) *Sink {
	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	return &Sink{
		console:  console,
		output:   strings.TrimSpace(opts.OutputPath),
		saveDir:  strings.TrimSpace(opts.SaveDir),
		saveBody: opts.SaveBody,
		logger:   opts.Logger,
	}
}

// Record consumes one outcome: appends it to the aggregate stream, emits the
// console line, and writes per-target files when configured. File write
// errors are logged, never propagated; one target's persistence problem must
// not abort its siblings.
func (s *Sink) Record(outcome runner.Outcome) {
	s.mu.Lock()
	s.outcomes = append(s.outcomes, outcome)
	if outcome.Failed() {
		fmt.Fprintf(s.console, "[!] %s: ERROR -> %s\n", outcome.Name, outcome.Err)
	} else {
		fmt.Fprintf(s.console, "[+] %s: %d in %gms\n", outcome.Name, outcome.Status, outcome.ElapsedMs)
	}
	s.mu.Unlock()

	if s.saveDir != "" {
		if err := s.saveFiles(outcome); err != nil {
			s.logger.Error().Str("target", outcome.Name).Err(err).Msg("save outcome files")
		}
	}
}

// Outcomes returns the outcomes received so far, in completion order.
func (s *Sink) Outcomes() []runner.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.Outcome(nil), s.outcomes...)
}

// Flush writes the aggregate JSON Lines file, one object per outcome in
// completion order. The file is guarded with an advisory lock so concurrent
// runs pointed at the same path do not interleave.
func (s *Sink) Flush() error {
	if s.output == "" {
		return nil
	}

	s.mu.Lock()
	outcomes := append([]runner.Outcome(nil), s.outcomes...)
	s.mu.Unlock()

	lock := flock.New(s.output + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock output file: %w", err)
	}
	defer lock.Unlock()

	file, err := os.Create(s.output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	for _, outcome := range outcomes {
		if err := enc.Encode(outcome); err != nil {
			return fmt.Errorf("write output line: %w", err)
		}
	}
	return nil
}

// saveFiles writes <name>.meta.json and, for successes with save-body on,
// <name>.body under the save directory.
func (s *Sink) saveFiles(outcome runner.Outcome) error {
	if err := os.MkdirAll(s.saveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	base := SanitizeName(outcome.Name)
	meta, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	metaPath := filepath.Join(s.saveDir, base+".meta.json")
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("write meta file: %w", err)
	}

	if s.saveBody && !outcome.Failed() {
		bodyPath := filepath.Join(s.saveDir, base+".body")
		if err := os.WriteFile(bodyPath, outcome.Body, 0o644); err != nil {
			return fmt.Errorf("write body file: %w", err)
		}
	}
	return nil
}

// SanitizeName reduces an untrusted target name to a safe file name: only
// alphanumerics, '-', '_', and '.' survive, and the result is capped at 128
// characters. This keeps hostile names from escaping the save directory.
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	out := sb.String()
	if len(out) > maxFileNameLen {
		out = out[:maxFileNameLen]
	}
	return out
}
