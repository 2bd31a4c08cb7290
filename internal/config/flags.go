package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "salvo",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.String("url", "", "Target URL")
	flags.StringP("method", "X", "GET", "HTTP method (GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS)")
	flags.StringArrayP("param", "p", nil, "Query param as key=value (repeatable)")
	flags.StringArrayP("header", "H", nil, "Header as 'Name: Value' (repeatable)")
	flags.StringArrayP("cookie", "b", nil, "Cookie as key=value (repeatable)")

	// Body
	flags.String("json", "", "Inline JSON or path to a JSON file for the request body")
	flags.String("data", "", "Raw data string or path to a file for the request body")

	// Session fan-out
	flags.String("session-file", "", "Path to file with one session token per line")
	flags.String("session-header-name", "", "Header name carrying the session token")
	flags.String("session-cookie-name", "", "Cookie name carrying the session token")
	flags.String("name", "", "Name for single-request mode (used when no session file)")

	// Networking
	flags.Duration("timeout", 30*time.Second, "Per-attempt timeout")
	flags.String("proxy", "", "Proxy URL applied to both http and https targets")
	flags.Bool("no-verify", false, "Disable TLS certificate verification")
	flags.BoolP("follow-redirects", "L", false, "Follow HTTP redirects")
	flags.String("transport", string(TransportClient), "Transport backend: 'client' or 'raw'")

	// Concurrency & retries
	flags.IntP("concurrency", "c", 10, "Number of concurrent workers")
	flags.Int("retries", 2, "Retries per target after a transport failure")
	flags.Duration("backoff", 200*time.Millisecond, "Exponential backoff base applied before each retry")
	flags.Duration("delay", 0, "Pacing delay applied before every attempt")
	flags.IntP("rate", "r", 0, "Global requests-per-second cap (0 means unlimited)")

	// Output
	flags.StringP("output", "o", "", "Write JSON Lines results to this path")
	flags.String("save-dir", "", "Directory for per-target metadata and body files")
	flags.Bool("save-body", false, "Save response bodies when --save-dir is set")
	flags.Bool("json-output", false, "Emit the summary report as JSON")

	// Logging
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	flags.String("log-file", "", "Write logs to this file with rotation instead of stderr")

	// Tracing
	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Skip TLS for OTLP export")
	flags.Bool("trace-propagate", false, "Inject W3C trace context headers into outgoing requests")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("url") {
		val, err := fs.GetString("url")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}

	params, err := fs.GetStringArray("param")
	if err != nil {
		return err
	}
	if len(params) > 0 {
		parsed, err := ParsePairs(params, "=")
		if err != nil {
			return err
		}
		if cfg.Params == nil {
			cfg.Params = map[string]string{}
		}
		for k, v := range parsed {
			cfg.Params[k] = v
		}
	}

	headers, err := fs.GetStringArray("header")
	if err != nil {
		return err
	}
	if len(headers) > 0 {
		parsed, err := ParseHeaders(headers)
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range parsed {
			cfg.Headers[k] = v
		}
	}

	cookies, err := fs.GetStringArray("cookie")
	if err != nil {
		return err
	}
	if len(cookies) > 0 {
		parsed, err := ParsePairs(cookies, "=")
		if err != nil {
			return err
		}
		if cfg.Cookies == nil {
			cfg.Cookies = map[string]string{}
		}
		for k, v := range parsed {
			cfg.Cookies[k] = v
		}
	}

	if fs.Changed("json") {
		val, err := fs.GetString("json")
		if err != nil {
			return err
		}
		cfg.JSONSource = val
	}
	if fs.Changed("data") {
		val, err := fs.GetString("data")
		if err != nil {
			return err
		}
		cfg.DataSource = val
	}

	if fs.Changed("session-file") {
		val, err := fs.GetString("session-file")
		if err != nil {
			return err
		}
		cfg.SessionFile = strings.TrimSpace(val)
	}
	if fs.Changed("session-header-name") {
		val, err := fs.GetString("session-header-name")
		if err != nil {
			return err
		}
		cfg.SessionHeader = strings.TrimSpace(val)
	}
	if fs.Changed("session-cookie-name") {
		val, err := fs.GetString("session-cookie-name")
		if err != nil {
			return err
		}
		cfg.SessionCookie = strings.TrimSpace(val)
	}
	if fs.Changed("name") {
		val, err := fs.GetString("name")
		if err != nil {
			return err
		}
		cfg.Name = strings.TrimSpace(val)
	}

	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("proxy") {
		val, err := fs.GetString("proxy")
		if err != nil {
			return err
		}
		cfg.ProxyURL = strings.TrimSpace(val)
	}
	if fs.Changed("no-verify") {
		val, err := fs.GetBool("no-verify")
		if err != nil {
			return err
		}
		cfg.VerifyTLS = !val
	}
	if fs.Changed("follow-redirects") {
		val, err := fs.GetBool("follow-redirects")
		if err != nil {
			return err
		}
		cfg.FollowRedirects = val
	}
	if fs.Changed("transport") {
		val, err := fs.GetString("transport")
		if err != nil {
			return err
		}
		cfg.Transport = TransportKind(strings.ToLower(strings.TrimSpace(val)))
	}

	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = val
	}
	if fs.Changed("backoff") {
		val, err := fs.GetDuration("backoff")
		if err != nil {
			return err
		}
		cfg.Backoff = val
	}
	if fs.Changed("delay") {
		val, err := fs.GetDuration("delay")
		if err != nil {
			return err
		}
		cfg.Delay = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}

	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.OutputPath = strings.TrimSpace(val)
	}
	if fs.Changed("save-dir") {
		val, err := fs.GetString("save-dir")
		if err != nil {
			return err
		}
		cfg.SaveDir = strings.TrimSpace(val)
	}
	if fs.Changed("save-body") {
		val, err := fs.GetBool("save-body")
		if err != nil {
			return err
		}
		cfg.SaveBody = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}

	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-file") {
		val, err := fs.GetString("log-file")
		if err != nil {
			return err
		}
		cfg.LogFile = strings.TrimSpace(val)
	}

	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-propagate") {
		val, err := fs.GetBool("trace-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}

	return nil
}
