package ports

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// InferenceEngine is the inference capability seen by the bridge and the
// conversation orchestrator.
type InferenceEngine interface {
	// Execute runs a tensor request. Failures are reported in the result.
	Execute(ctx context.Context, payload entities.InferencePayload) entities.InferenceResult

	// RunInference completes prompt with the model routed for task.
	RunInference(ctx context.Context, prompt string, task entities.Task) (string, error)

	// RunEmbedding embeds text with the tier's embedding model.
	RunEmbedding(ctx context.Context, text string) ([]float32, error)
}
