package sink_test

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"salvo/internal/runner"
	"salvo/internal/sink"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"path traversal", "../../etc/passwd", ".._.._etc_passwd"},
		{"plain", "request", "request"},
		{"allowed runes survive", "a-b_c.d9", "a-b_c.d9"},
		{"spaces and symbols", "a b/c:d", "a_b_c_d"},
		{"unicode", "tokén", "tok_n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sink.SanitizeName(tc.in)
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
			if strings.ContainsAny(got, "/\\") {
				t.Errorf("sanitized name contains path separators: %q", got)
			}
		})
	}
}

func TestSanitizeNameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := sink.SanitizeName(long); len(got) != 128 {
		t.Errorf("expected 128-char cap, got %d", len(got))
	}
}

func TestRecordConsoleLines(t *testing.T) {
	var console bytes.Buffer
	s := sink.New(sink.Options{Console: &console, Logger: zerolog.Nop()})

	s.Record(runner.Outcome{Name: "request", Status: 200, ElapsedMs: 12.34})
	s.Record(runner.Outcome{Name: "victim", Err: "connection refused"})

	lines := strings.Split(strings.TrimSpace(console.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 console lines, got %d", len(lines))
	}
	if lines[0] != "[+] request: 200 in 12.34ms" {
		t.Errorf("unexpected success line: %q", lines[0])
	}
	if lines[1] != "[!] victim: ERROR -> connection refused" {
		t.Errorf("unexpected failure line: %q", lines[1])
	}

	outcomes := s.Outcomes()
	if len(outcomes) != 2 || outcomes[0].Name != "request" || outcomes[1].Name != "victim" {
		t.Errorf("expected outcomes in completion order, got %+v", outcomes)
	}
}

func TestSaveDirFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	s := sink.New(sink.Options{SaveDir: dir, SaveBody: true, Logger: zerolog.Nop()})

	s.Record(runner.Outcome{
		Name:      "token-1",
		Status:    200,
		ElapsedMs: 3.2,
		Headers:   map[string]string{"Content-Type": "text/html"},
		Body:      []byte("<html>ok</html>"),
	})
	s.Record(runner.Outcome{Name: "token-2", Err: "tls handshake failed"})

	meta, err := os.ReadFile(filepath.Join(dir, "token-1.meta.json"))
	if err != nil {
		t.Fatalf("expected meta file: %v", err)
	}
	if gjson.GetBytes(meta, "status").Int() != 200 {
		t.Errorf("meta file missing status: %s", meta)
	}

	body, err := os.ReadFile(filepath.Join(dir, "token-1.body"))
	if err != nil {
		t.Fatalf("expected body file: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("unexpected body content: %q", body)
	}

	failMeta, err := os.ReadFile(filepath.Join(dir, "token-2.meta.json"))
	if err != nil {
		t.Fatalf("expected meta file for failure: %v", err)
	}
	if gjson.GetBytes(failMeta, "error").String() != "tls handshake failed" {
		t.Errorf("failure meta missing error: %s", failMeta)
	}
	if _, err := os.Stat(filepath.Join(dir, "token-2.body")); !os.IsNotExist(err) {
		t.Error("failed outcome must not produce a body file")
	}
}

func TestSaveBodyDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	s := sink.New(sink.Options{SaveDir: dir, Logger: zerolog.Nop()})

	s.Record(runner.Outcome{Name: "request", Status: 200, Body: []byte("content")})

	if _, err := os.Stat(filepath.Join(dir, "request.meta.json")); err != nil {
		t.Errorf("expected meta file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "request.body")); !os.IsNotExist(err) {
		t.Error("body file must not be written without save-body")
	}
}

func TestFlushWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	s := sink.New(sink.Options{OutputPath: path, Logger: zerolog.Nop()})

	s.Record(runner.Outcome{Name: "a", Status: 200, ElapsedMs: 1.1, Headers: map[string]string{}})
	s.Record(runner.Outcome{Name: "b", Err: "timeout"})
	s.Record(runner.Outcome{Name: "c", Status: 503, ElapsedMs: 2.2, Headers: map[string]string{}})

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 JSON lines, got %d", len(lines))
	}

	// Completion order preserved; each line matches one of the two shapes.
	wantNames := []string{"a", "b", "c"}
	for i, line := range lines {
		parsed := gjson.Parse(line)
		if parsed.Get("name").String() != wantNames[i] {
			t.Errorf("line %d: expected name %q, got %s", i, wantNames[i], line)
		}
		isSuccess := parsed.Get("status").Exists()
		isFailure := parsed.Get("error").Exists()
		if isSuccess == isFailure {
			t.Errorf("line %d must match exactly one outcome shape: %s", i, line)
		}
	}
}

func TestFlushWithoutOutputPathIsNoop(t *testing.T) {
	s := sink.New(sink.Options{Logger: zerolog.Nop()})
	s.Record(runner.Outcome{Name: "request", Status: 200})
	if err := s.Flush(); err != nil {
		t.Errorf("expected noop flush, got %v", err)
	}
}
