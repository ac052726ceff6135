package config

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	caps, err := cfg.CapabilitySet()
	require.NoError(t, err)
	assert.Equal(t, "chat,db,onnx", caps.String())
}

func TestLoadFrom_Environment(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ARTEFACT_DB_PATH":          ":memory:",
		"ARTEFACT_MODEL_DIR":        "/srv/models",
		"ARTEFACT_LOG_LEVEL":        "debug",
		"ARTEFACT_LOG_FORMAT":       "json",
		"ARTEFACT_HOST_MODULE":      "artefact",
		"ARTEFACT_MAX_REQUEST_SIZE": "2048",
		"ARTEFACT_MEMORY_BYTES":     "17179869184",
		"ARTEFACT_CAPABILITIES":     "db, onnx",
		"ARTEFACT_OPENAI_BASE_URL":  "http://localhost:11434/v1",
		"ARTEFACT_OPENAI_API_KEY":   "sk-test",
		"ARTEFACT_BUSY_TIMEOUT":     "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "/srv/models", cfg.ModelDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "artefact", cfg.HostModule)
	assert.Equal(t, uint32(2048), cfg.MaxRequestSize)
	assert.Equal(t, uint64(16<<30), cfg.MemoryBytes)
	assert.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.BusyTimeout)

	caps, err := cfg.CapabilitySet()
	require.NoError(t, err)
	assert.True(t, caps.Has(entities.CapabilityDB))
	assert.True(t, caps.Has(entities.CapabilityONNX))
	assert.False(t, caps.Has(entities.CapabilityChat))
}

func TestLoadFrom_OptionsOverrideEnvironment(t *testing.T) {
	cfg, err := LoadFrom(
		map[string]string{"ARTEFACT_DB_PATH": "env.db"},
		WithDBPath("flag.db"),
		WithModelDir(""),
		WithCapabilities("chat"),
		WithBusyTimeout(time.Second),
		WithMaxRequestSize(0),
		WithMemoryBytes(4<<30),
		WithOpenAI("", "key"),
		WithLogLevel("warn"),
		WithLogFormat("json"),
		WithHostModule("host"),
	)
	require.NoError(t, err)

	assert.Equal(t, "flag.db", cfg.DBPath)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, []string{"chat"}, cfg.Capabilities)
	assert.Equal(t, time.Second, cfg.BusyTimeout)
	assert.Equal(t, uint32(1<<20), cfg.MaxRequestSize)
	assert.Equal(t, uint64(4<<30), cfg.MemoryBytes)
	assert.Equal(t, "key", cfg.OpenAIAPIKey)
	assert.Empty(t, cfg.OpenAIBaseURL)
	assert.Equal(t, "host", cfg.HostModule)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"log format", map[string]string{"ARTEFACT_LOG_FORMAT": "xml"}, "LogFormat"},
		{"log level", map[string]string{"ARTEFACT_LOG_LEVEL": "loud"}, "LogLevel"},
		{"base url", map[string]string{"ARTEFACT_OPENAI_BASE_URL": "not a url"}, "OpenAIBaseURL"},
		{"capability", map[string]string{"ARTEFACT_CAPABILITIES": "db,net"}, "Capabilities"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			require.Error(t, err)

			var cfgErr *errors.ConfigError
			require.True(t, stdErrors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	t.Run("unparsable number", func(t *testing.T) {
		_, err := LoadFrom(map[string]string{"ARTEFACT_MAX_REQUEST_SIZE": "lots"})
		var cfgErr *errors.ConfigError
		require.True(t, stdErrors.As(err, &cfgErr))
	})
}
