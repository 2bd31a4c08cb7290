// Package config provides configuration loading, parsing, and validation for salvo.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// TransportKind selects which HTTP transport backend executes attempts.
type TransportKind string

const (
	// TransportClient uses the pooled net/http client backend.
	TransportClient TransportKind = "client"
	// TransportRaw dials a fresh connection per attempt using base networking primitives.
	TransportRaw TransportKind = "raw"
)

// Config is the fully validated execution configuration for a run.
// It is built once from flags and an optional config file, then treated as
// immutable by every downstream component.
type Config struct {
	TargetURL string            `mapstructure:"target"`
	Method    string            `mapstructure:"method"`
	Params    map[string]string `mapstructure:"params"`
	Headers   map[string]string `mapstructure:"headers"`
	Cookies   map[string]string `mapstructure:"cookies"`

	// JSONSource and DataSource are the raw body inputs (inline content or a
	// file path). ResolveBody turns exactly one of them into Body.
	JSONSource string `mapstructure:"json"`
	DataSource string `mapstructure:"data"`
	Body       []byte `mapstructure:"-"`
	BodyIsJSON bool   `mapstructure:"-"`

	SessionFile   string `mapstructure:"session_file"`
	SessionHeader string `mapstructure:"session_header_name"`
	SessionCookie string `mapstructure:"session_cookie_name"`
	Name          string `mapstructure:"name"`

	ProxyURL        string        `mapstructure:"proxy"`
	Timeout         time.Duration `mapstructure:"timeout"`
	VerifyTLS       bool          `mapstructure:"verify_tls"`
	FollowRedirects bool          `mapstructure:"follow_redirects"`
	Transport       TransportKind `mapstructure:"transport"`

	Concurrency int           `mapstructure:"concurrency"`
	Retries     int           `mapstructure:"retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
	Delay       time.Duration `mapstructure:"delay"`
	Rate        int           `mapstructure:"rate"`

	OutputPath string `mapstructure:"output"`
	SaveDir    string `mapstructure:"save_dir"`
	SaveBody   bool   `mapstructure:"save_body"`
	JSONOutput bool   `mapstructure:"json_output"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig configures the optional OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

var allowedMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {}, "HEAD": {}, "OPTIONS": {},
}

// ValidationError aggregates every configuration issue found during Validate.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns a copy of the individual validation failures.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// NewValidationError builds a ValidationError from explicit issues.
func NewValidationError(issues ...string) ValidationError {
	return ValidationError{issues: issues}
}

// Validate checks the invariants the execution engine relies on. It never
// touches the network.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required")
	} else if u, err := url.Parse(c.TargetURL); err != nil {
		issues = append(issues, fmt.Sprintf("target URL is invalid: %v", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		issues = append(issues, fmt.Sprintf("target URL scheme must be http or https, got %q", u.Scheme))
	}

	method := strings.ToUpper(strings.TrimSpace(c.Method))
	if method != "" {
		if _, ok := allowedMethods[method]; !ok {
			issues = append(issues, fmt.Sprintf("method %q is not supported", c.Method))
		}
	}

	if strings.TrimSpace(c.JSONSource) != "" && strings.TrimSpace(c.DataSource) != "" {
		issues = append(issues, "json and data are mutually exclusive body sources")
	}

	if c.ProxyURL != "" {
		if _, err := url.Parse(c.ProxyURL); err != nil {
			issues = append(issues, fmt.Sprintf("proxy URL is invalid: %v", err))
		}
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Backoff < 0 {
		issues = append(issues, "backoff must be >= 0")
	}
	if c.Delay < 0 {
		issues = append(issues, "delay must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	switch c.Transport {
	case "", TransportClient, TransportRaw:
	default:
		issues = append(issues, fmt.Sprintf("transport must be %q or %q, got %q", TransportClient, TransportRaw, c.Transport))
	}

	if c.SaveBody && strings.TrimSpace(c.SaveDir) == "" {
		issues = append(issues, "save_body requires save_dir")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
