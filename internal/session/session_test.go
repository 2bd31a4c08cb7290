package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"salvo/internal/config"
	"salvo/internal/session"
)

func TestLoadSyntheticTarget(t *testing.T) {
	targets, err := session.Load(&config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(targets))
	}
	if targets[0].Name != session.DefaultName {
		t.Errorf("expected default name %q, got %q", session.DefaultName, targets[0].Name)
	}
	if targets[0].Token != "" {
		t.Errorf("synthetic target must carry no token, got %q", targets[0].Token)
	}
}

func TestLoadSyntheticTargetCustomName(t *testing.T) {
	targets, err := session.Load(&config.Config{Name: "probe-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[0].Name != "probe-1" {
		t.Errorf("expected custom name, got %q", targets[0].Name)
	}
}

func TestLoadSessionFileFanOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.txt")
	content := "token-a\n\n  \ntoken-b\n  token-c  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	targets, err := session.Load(&config.Config{SessionFile: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets (blank lines skipped), got %d", len(targets))
	}
	want := []string{"token-a", "token-b", "token-c"}
	for i, tgt := range targets {
		if tgt.Name != want[i] || tgt.Token != want[i] {
			t.Errorf("target %d: expected name and token %q, got %+v", i, want[i], tgt)
		}
	}
}

func TestLoadMissingSessionFile(t *testing.T) {
	_, err := session.Load(&config.Config{SessionFile: filepath.Join(t.TempDir(), "absent.txt")})
	if err == nil {
		t.Fatal("expected error for missing session file")
	}
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected ValidationError, got %T", err)
	}
}
