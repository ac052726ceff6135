package descriptor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

const requestTimeout = 60 * time.Second

// remoteSession serves an openai descriptor. A descriptor with task
// "embedding" embeds; any other task generates.
type remoteSession struct {
	client     *openai.Client
	logger     *slog.Logger
	desc       entities.ModelDescriptor
	retryDelay time.Duration
}

func newRemoteSession(client *openai.Client, d *entities.ModelDescriptor, retryDelay time.Duration, logger *slog.Logger) *remoteSession {
	return &remoteSession{client: client, logger: logger, desc: *d, retryDelay: retryDelay}
}

func (s *remoteSession) Run(_ context.Context, _ map[string]entities.Tensor) (map[string]entities.Tensor, error) {
	return nil, errNoTensors(entities.ModelKindOpenAI)
}

// Generate sends prompt as a single user message after the descriptor's
// system prompt.
func (s *remoteSession) Generate(ctx context.Context, prompt string) (string, error) {
	if s.desc.Task == "embedding" {
		return "", fmt.Errorf("model %q is an embedding model", s.desc.Model)
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if s.desc.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: s.desc.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	req := openai.ChatCompletionRequest{
		Model:       s.desc.Model,
		Messages:    messages,
		MaxTokens:   s.desc.MaxTokens,
		Temperature: s.desc.Temperature,
	}

	var out string
	err := s.retry(ctx, "chat completion", func(ctx context.Context) error {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	return out, err
}

// Embed requests an embedding for text.
func (s *remoteSession) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.desc.Task != "embedding" {
		return nil, fmt.Errorf("model %q is not an embedding model", s.desc.Model)
	}

	req := openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.desc.Model),
	}
	if s.desc.Dimensions > 0 {
		req.Dimensions = s.desc.Dimensions
	}

	var out []float32
	err := s.retry(ctx, "embedding", func(ctx context.Context) error {
		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("no embeddings returned")
		}
		out = resp.Data[0].Embedding
		return nil
	})
	return out, err
}

func (s *remoteSession) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.desc.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(s.retryDelay, attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		s.logger.Debug("descriptor: remote call failed", "op", op, "model", s.desc.Model, "error", err)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, s.desc.Retries+1, lastErr)
}

// backoff doubles base per attempt, caps at 30s and adds ±25% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 || base <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt))
	if d > 30*time.Second || d <= 0 {
		d = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2+1)) - d/4
	return d + jitter
}
