package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file into
// a Config. The body sources are resolved here so the returned Config is
// complete and immutable for the run.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()

	cfg := defaults()
	cfg.ConfigFile = configPath

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.normalize()

	if err := cfg.ResolveBody(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Method:      "GET",
		Params:      map[string]string{},
		Headers:     map[string]string{},
		Cookies:     map[string]string{},
		Timeout:     30 * time.Second,
		VerifyTLS:   true,
		Transport:   TransportClient,
		Concurrency: 10,
		Retries:     2,
		Backoff:     200 * time.Millisecond,
		LogLevel:    "info",
		Tracing:     TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

func (c *Config) normalize() {
	c.TargetURL = strings.TrimSpace(c.TargetURL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = "GET"
	}
	if c.Transport == "" {
		c.Transport = TransportClient
	}
	if c.Params == nil {
		c.Params = map[string]string{}
	}
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	if c.Cookies == nil {
		c.Cookies = map[string]string{}
	}
}
