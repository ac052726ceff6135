// Package config loads host settings from ARTEFACT_* environment variables.
package config

import (
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
)

var validate = validator.New()

// Config holds the host settings. Zero-valued optional fields mean "not set".
type Config struct {
	// DBPath is the database file, or ":memory:".
	DBPath string `env:"ARTEFACT_DB_PATH" validate:"required"`

	// ModelDir is the base directory model ids resolve against.
	ModelDir string `env:"ARTEFACT_MODEL_DIR" validate:"required"`

	LogLevel  string `env:"ARTEFACT_LOG_LEVEL" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	LogFormat string `env:"ARTEFACT_LOG_FORMAT" validate:"oneof=text json"`

	// HostModule is the import module name WASM guests link against.
	HostModule string `env:"ARTEFACT_HOST_MODULE" validate:"required"`

	OpenAIBaseURL string `env:"ARTEFACT_OPENAI_BASE_URL" validate:"omitempty,url"`
	OpenAIAPIKey  string `env:"ARTEFACT_OPENAI_API_KEY"`

	// Capabilities granted to guests: db, onnx, chat or all.
	Capabilities []string `env:"ARTEFACT_CAPABILITIES" envSeparator:","`

	// MemoryBytes overrides the probed total memory used for tier detection.
	MemoryBytes uint64 `env:"ARTEFACT_MEMORY_BYTES"`

	BusyTimeout    time.Duration `env:"ARTEFACT_BUSY_TIMEOUT" validate:"gt=0"`
	MaxRequestSize uint32        `env:"ARTEFACT_MAX_REQUEST_SIZE" validate:"gt=0"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		DBPath:         "artefact.db",
		ModelDir:       "models",
		LogLevel:       "info",
		LogFormat:      "text",
		HostModule:     "env",
		Capabilities:   []string{"all"},
		BusyTimeout:    5 * time.Second,
		MaxRequestSize: 1 << 20,
	}
}

// Option overrides a setting after the environment is read.
type Option func(*Config)

// WithDBPath sets the database path.
func WithDBPath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.DBPath = path
		}
	}
}

// WithModelDir sets the model base directory.
func WithModelDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.ModelDir = dir
		}
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.LogLevel = level
		}
	}
}

// WithLogFormat sets the log format (text or json).
func WithLogFormat(format string) Option {
	return func(c *Config) {
		if format != "" {
			c.LogFormat = format
		}
	}
}

// WithHostModule sets the WASM host module name.
func WithHostModule(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.HostModule = name
		}
	}
}

// WithMaxRequestSize sets the largest request read from guest memory.
func WithMaxRequestSize(n uint32) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxRequestSize = n
		}
	}
}

// WithMemoryBytes pins the total memory used for tier detection.
func WithMemoryBytes(n uint64) Option {
	return func(c *Config) {
		c.MemoryBytes = n
	}
}

// WithCapabilities replaces the granted capabilities.
func WithCapabilities(names ...string) Option {
	return func(c *Config) {
		if len(names) > 0 {
			c.Capabilities = names
		}
	}
}

// WithOpenAI sets the endpoint and key for openai model descriptors.
func WithOpenAI(baseURL, apiKey string) Option {
	return func(c *Config) {
		if baseURL != "" {
			c.OpenAIBaseURL = baseURL
		}
		if apiKey != "" {
			c.OpenAIAPIKey = apiKey
		}
	}
}

// WithBusyTimeout sets how long the store waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.BusyTimeout = d
		}
	}
}

// Load reads the process environment over the defaults, applies opts and
// validates the result.
func Load(opts ...Option) (Config, error) {
	return load(env.Options{}, opts...)
}

// LoadFrom is Load with an explicit environment instead of the process one.
func LoadFrom(environ map[string]string, opts ...Option) (Config, error) {
	return load(env.Options{Environment: environ}, opts...)
}

func load(envOpts env.Options, opts ...Option) (Config, error) {
	cfg := Default()
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, &errors.ConfigError{Err: err}
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the capability names. The error names
// the first bad field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		_, err = c.CapabilitySet()
		return err
	}
	var verrs validator.ValidationErrors
	if stdErrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &errors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("failed on %q with value %v", fe.Tag(), fe.Value()),
		}
	}
	return &errors.ConfigError{Err: err}
}

// CapabilitySet parses the granted capability names.
func (c Config) CapabilitySet() (entities.CapabilitySet, error) {
	set, err := entities.ParseCapabilities(c.Capabilities)
	if err != nil {
		return nil, &errors.ConfigError{Field: "Capabilities", Err: err}
	}
	return set, nil
}
