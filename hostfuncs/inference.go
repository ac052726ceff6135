package hostfuncs

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// NewInferenceHandler runs a model. Every failure is reported in the result.
func NewInferenceHandler(engine ports.InferenceEngine) HostFunc[entities.InferencePayload, entities.InferenceResult] {
	return func(ctx context.Context, req entities.InferencePayload) (entities.InferenceResult, error) {
		return engine.Execute(ctx, req), nil
	}
}
