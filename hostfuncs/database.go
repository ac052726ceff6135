package hostfuncs

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// NewQueryHandler runs one statement. Query failures travel in the result;
// an unsupported method fails the call as a protocol violation.
func NewQueryHandler(store ports.QueryExecutor) HostFunc[entities.QueryPayload, entities.QueryResult] {
	return func(ctx context.Context, req entities.QueryPayload) (entities.QueryResult, error) {
		return store.Execute(ctx, req)
	}
}

// NewBatchHandler runs the statements in one transaction. Any failure rolls
// the batch back and fails the call.
func NewBatchHandler(store ports.QueryExecutor) HostFunc[entities.BatchPayload, entities.BatchResult] {
	return func(ctx context.Context, req entities.BatchPayload) (entities.BatchResult, error) {
		results, err := store.ExecuteBatch(ctx, req.Queries)
		if err != nil {
			return entities.BatchResult{}, err
		}
		return entities.BatchResult{Results: results}, nil
	}
}
