// Package runner coordinates concurrent request execution: the retrying
// executor drives one target to a terminal outcome, and the dispatcher fans
// targets over a bounded worker pool.
package runner
