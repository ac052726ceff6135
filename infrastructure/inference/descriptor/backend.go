// Package descriptor is the default model backend. Each model file is a YAML
// descriptor naming a session kind: an OpenAI-compatible endpoint, an offline
// character-trigram embedder or a dense linear layer.
package descriptor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
	"github.com/reglet-dev/artefact-host/infrastructure/parser"
)

var _ ports.ModelBackend = (*Backend)(nil)

// Backend compiles descriptor files into sessions.
type Backend struct {
	parser     ports.DescriptorParser
	client     *openai.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithOpenAI configures the client used by openai descriptors. An empty
// baseURL keeps the public endpoint.
func WithOpenAI(baseURL, apiKey string) Option {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return WithOpenAIClient(openai.NewClientWithConfig(cfg))
}

// WithOpenAIClient sets a prebuilt client.
func WithOpenAIClient(client *openai.Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithRetryDelay sets the base delay between retries of remote calls.
func WithRetryDelay(d time.Duration) Option {
	return func(b *Backend) {
		if d >= 0 {
			b.retryDelay = d
		}
	}
}

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBackend builds a Backend that parses YAML descriptors.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		parser:     parser.NewYamlDescriptorParser(),
		logger:     slog.Default(),
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load reads and parses the descriptor at path.
func (b *Backend) Load(_ context.Context, path string) (ports.ModelSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := b.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case entities.ModelKindOpenAI:
		if b.client == nil {
			return nil, fmt.Errorf("openai model %q: no client configured", d.Model)
		}
		return newRemoteSession(b.client, d, b.retryDelay, b.logger), nil
	case entities.ModelKindChargram:
		return newChargramSession(d), nil
	case entities.ModelKindLinear:
		return newLinearSession(d), nil
	default:
		return nil, fmt.Errorf("unsupported model kind %q", d.Kind)
	}
}

// errNoTensors is returned by sessions that only handle text.
func errNoTensors(kind entities.ModelKind) error {
	return fmt.Errorf("%s models do not accept tensor inputs", kind)
}
