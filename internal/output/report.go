// Package output renders the end-of-run summary report.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"salvo/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, runID string, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Run Summary ---")
	fmt.Fprintf(w, "Run ID:            %s\n", runID)
	fmt.Fprintf(w, "Targets:           %d\n", stats.Total)
	fmt.Fprintf(w, "Responses:         %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nTransport Errors:")
		types := make([]string, 0, len(stats.Errors))
		for errType := range stats.Errors {
			types = append(types, errType)
		}
		sort.Strings(types)
		for _, errType := range types {
			fmt.Fprintf(w, "  %s: %d\n", errType, stats.Errors[errType])
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, runID string, stats metrics.Stats) error {
	payload := struct {
		RunID string `json:"run_id"`
		metrics.Stats
	}{RunID: runID, Stats: stats}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
