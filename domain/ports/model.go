package ports

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// ModelSession is a loaded model that maps named input tensors to named
// output tensors. Implementations need not be safe for concurrent use; the
// registry serializes access.
type ModelSession interface {
	Run(ctx context.Context, inputs map[string]entities.Tensor) (map[string]entities.Tensor, error)
}

// TextGenerator is a session that can complete a text prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder is a session that can embed text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ModelBackend compiles a model file into a session. The path has already
// been confined to the model directory and is known to exist.
type ModelBackend interface {
	Load(ctx context.Context, path string) (ModelSession, error)
}

// MemoryProbe reports total host memory in bytes.
type MemoryProbe interface {
	TotalMemory() (uint64, error)
}
