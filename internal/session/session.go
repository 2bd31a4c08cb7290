// Package session expands a run configuration into the targets it executes.
package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"salvo/internal/config"
)

// DefaultName is the synthetic target name used in single-request mode.
const DefaultName = "request"

// Target is one logical unit of work. Each target yields exactly one outcome.
type Target struct {
	Name  string
	Token string // session token; empty means none
}

// Load fans the configuration out into targets. Without a session file it
// returns a single synthetic target; with one, a target per non-blank line,
// where the trimmed line is both the name and the token.
func Load(cfg *config.Config) ([]Target, error) {
	path := strings.TrimSpace(cfg.SessionFile)
	if path == "" {
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = DefaultName
		}
		return []Target{{Name: name}}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, config.NewValidationError(fmt.Sprintf("session file: %v", err))
	}
	defer file.Close()

	var targets []Target
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}
		targets = append(targets, Target{Name: token, Token: token})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return targets, nil
}
