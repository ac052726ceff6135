// Package inference implements the model registry behind the onnx and chat
// capabilities.
//
// The registry reads total memory once, picks the tier's model triple and
// lazily compiles model files into sessions through a ModelBackend. Sessions
// are cached by path for the lifetime of the registry and every lookup, load
// and run happens under one lock, so a path is loaded at most once.
package inference

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

var _ ports.InferenceEngine = (*Registry)(nil)

// Registry owns the model-session cache.
type Registry struct {
	backend  ports.ModelBackend
	logger   *slog.Logger
	sessions map[string]ports.ModelSession
	baseDir  string
	models   entities.ModelSet
	total    uint64
	tier     entities.ModelTier
	mu       sync.Mutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a registry rooted at baseDir. It detects the tier from probe and
// loads the tier's embedding model, which is mandatory. Chat and structured
// models are loaded too, but a failure there is only logged: generation falls
// back to whichever sibling did load.
func New(ctx context.Context, baseDir string, backend ports.ModelBackend, probe ports.MemoryProbe, opts ...Option) (*Registry, error) {
	r := &Registry{
		backend:  backend,
		logger:   slog.Default(),
		sessions: make(map[string]ports.ModelSession),
		baseDir:  baseDir,
	}
	for _, opt := range opts {
		opt(r)
	}

	total, err := probe.TotalMemory()
	if err != nil {
		r.logger.Warn("inference: memory probe failed, using smallest tier", "error", err)
		total = 0
	}
	r.total = total
	r.tier = entities.TierForMemory(total)
	r.models = r.tier.Models()

	r.logger.Info("inference: tier detected",
		"total_memory", total,
		"tier", r.tier.String(),
		"chat", r.models.Chat,
		"structured", r.models.Structured,
		"embedding", r.models.Embedding)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.loadSession(ctx, r.models.Embedding); err != nil {
		return nil, fmt.Errorf("load embedding model: %w", err)
	}
	for _, id := range []string{r.models.Chat, r.models.Structured} {
		if _, err := r.loadSession(ctx, id); err != nil {
			r.logger.Warn("inference: model unavailable", "model", id, "error", err)
		}
	}
	return r, nil
}

// Tier returns the detected tier.
func (r *Registry) Tier() entities.ModelTier { return r.tier }

// Models returns the tier's model triple.
func (r *Registry) Models() entities.ModelSet { return r.models }

// TotalMemory returns the memory size the tier was derived from.
func (r *Registry) TotalMemory() uint64 { return r.total }

// BaseDir returns the model directory.
func (r *Registry) BaseDir() string { return r.baseDir }

// Loaded lists the cached model identifiers.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidateModelPath rejects absolute paths and paths with a parent-directory
// component. It never touches the filesystem.
func ValidateModelPath(id string) error {
	if id == "" || filepath.IsAbs(id) || strings.HasPrefix(id, "/") || strings.HasPrefix(id, `\`) {
		return &errors.InvalidModelPathError{Path: id}
	}
	for _, part := range strings.FieldsFunc(id, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return &errors.InvalidModelPathError{Path: id}
		}
	}
	return nil
}

// loadSession returns the cached session for id or loads it. r.mu must be held.
func (r *Registry) loadSession(ctx context.Context, id string) (ports.ModelSession, error) {
	if err := ValidateModelPath(id); err != nil {
		return nil, err
	}
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	full := filepath.Join(r.baseDir, id)
	info, err := os.Stat(full)
	if err != nil {
		if stdErrors.Is(err, os.ErrNotExist) {
			return nil, &errors.ModelNotFoundError{Path: id}
		}
		return nil, &errors.ModelLoadError{Path: id, Err: err}
	}
	if info.IsDir() {
		return nil, &errors.ModelNotFoundError{Path: id}
	}

	s, err := r.backend.Load(ctx, full)
	if err != nil {
		return nil, &errors.ModelLoadError{Path: id, Err: err}
	}
	r.sessions[id] = s
	r.logger.Debug("inference: model loaded", "model", id)
	return s, nil
}

// Execute validates the input tensors, loads or reuses the session for
// payload.ModelPath and runs it. Every failure is returned in the result.
func (r *Registry) Execute(ctx context.Context, payload entities.InferencePayload) entities.InferenceResult {
	for name, t := range payload.Inputs {
		if err := t.Validate(); err != nil {
			return entities.InferenceErrorResult(&errors.ShapeError{Input: name, Err: err})
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := r.loadSession(ctx, payload.ModelPath)
	if err != nil {
		return entities.InferenceErrorResult(err)
	}

	outputs, err := session.Run(ctx, payload.Inputs)
	if err != nil {
		return entities.InferenceErrorResult(fmt.Errorf("run %s: %w", payload.ModelPath, err))
	}

	result := entities.InferenceResult{Outputs: make(map[string]entities.OutputTensor, len(outputs))}
	for name, t := range outputs {
		out, err := entities.OutputFromTensor(t)
		if err != nil {
			return entities.InferenceErrorResult(fmt.Errorf("output %q: %w", name, err))
		}
		result.Outputs[name] = out
	}
	return result
}

// candidates returns the ordered model identifiers tried for task.
func (r *Registry) candidates(task entities.Task) []string {
	switch task {
	case entities.TaskChat:
		return []string{r.models.Chat, r.models.Structured}
	case entities.TaskPredict, entities.TaskCategorise:
		return []string{r.models.Structured, r.models.Chat}
	default:
		return nil
	}
}

// RunInference completes prompt with the first candidate for task that loads
// and can generate text.
func (r *Registry) RunInference(ctx context.Context, prompt string, task entities.Task) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.candidates(task) {
		s, err := r.loadSession(ctx, id)
		if err != nil {
			r.logger.Debug("inference: candidate unavailable", "task", task.String(), "model", id, "error", err)
			continue
		}
		gen, ok := s.(ports.TextGenerator)
		if !ok {
			continue
		}
		return gen.Generate(ctx, prompt)
	}
	return "", &errors.NoSessionError{Family: "text generation"}
}

// RunEmbedding embeds text with the tier's embedding model.
func (r *Registry) RunEmbedding(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.loadSession(ctx, r.models.Embedding)
	if err != nil {
		return nil, &errors.NoSessionError{Family: "embedding"}
	}
	emb, ok := s.(ports.Embedder)
	if !ok {
		return nil, &errors.NoSessionError{Family: "embedding"}
	}
	return emb.Embed(ctx, text)
}
