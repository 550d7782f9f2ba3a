package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvLoggingLevel     = "REFLECTCALL_LOGGING_LEVEL"
	EnvLoggingFormat    = "REFLECTCALL_LOGGING_FORMAT"
	EnvCandidateOrder   = "REFLECTCALL_CANDIDATE_ORDER"
	EnvAllowHidden      = "REFLECTCALL_ALLOW_HIDDEN"
	EnvTracingEndpoint  = "REFLECTCALL_TRACING_ENDPOINT"
	EnvTracingCACerts   = "REFLECTCALL_TRACING_CA_CERTS"
	EnvTracingService   = "REFLECTCALL_SERVICE_NAME"
	defaultServiceName  = "reflectcall"
	defaultLoggingLevel = "warning"
)

var (
	ErrCfgBytesEmpty         = errors.New("config bytes is empty")
	ErrUnknownCandidateOrder = errors.New("unknown candidate order")
	ErrUnknownLoggingFormat  = errors.New("unknown logging format")
)

// Config is the call engine configuration.
type Config struct {
	Logging  Logging  `yaml:"logging"`
	Resolver Resolver `yaml:"resolver"`
	Tracing  Tracing  `yaml:"tracing"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

type Resolver struct {
	// CandidateOrder is "declared" or "signature".
	CandidateOrder string `yaml:"candidate_order"`
	// AllowHidden lets the engine invoke members outside of a type's public surface.
	AllowHidden bool `yaml:"allow_hidden"`
}

type Tracing struct {
	Endpoint    string `yaml:"endpoint"`
	CACerts     string `yaml:"ca_certs"`
	ServiceName string `yaml:"service_name"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  defaultLoggingLevel,
			Format: "text",
		},
		Resolver: Resolver{
			CandidateOrder: "declared",
			AllowHidden:    true,
		},
		Tracing: Tracing{
			ServiceName: defaultServiceName,
		},
	}
}

// FromBytes parses a YAML document on top of the defaults.
func FromBytes(cfgBytes []byte) (*Config, error) {
	if len(cfgBytes) == 0 {
		return nil, ErrCfgBytesEmpty
	}

	cfg := Default()
	if err := yaml.Unmarshal(cfgBytes, cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		cfgBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if cfg, err = FromBytes(cfgBytes); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLoggingLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLoggingFormat); ok {
		c.Logging.Format = v
	}
	if v, ok := lookup(EnvCandidateOrder); ok {
		c.Resolver.CandidateOrder = v
	}
	if v, ok := lookup(EnvAllowHidden); ok {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvAllowHidden, err)
		}
		c.Resolver.AllowHidden = allow
	}
	if v, ok := lookup(EnvTracingEndpoint); ok {
		c.Tracing.Endpoint = v
	}
	if v, ok := lookup(EnvTracingCACerts); ok {
		c.Tracing.CACerts = v
	}
	if v, ok := lookup(EnvTracingService); ok {
		c.Tracing.ServiceName = v
	}
	return nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Resolver.CandidateOrder {
	case "", "declared", "signature":
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownCandidateOrder, c.Resolver.CandidateOrder)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownLoggingFormat, c.Logging.Format)
	}
	return nil
}
