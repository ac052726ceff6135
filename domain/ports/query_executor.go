package ports

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
)

// QueryExecutor runs statements against the relational store.
type QueryExecutor interface {
	// Execute runs one statement. SQL failures are reported in the result;
	// the error return is reserved for protocol violations and store failures.
	Execute(ctx context.Context, payload entities.QueryPayload) (entities.QueryResult, error)

	// ExecuteBatch runs every payload in one transaction. Any failure rolls
	// back the whole batch and is returned as an error.
	ExecuteBatch(ctx context.Context, payloads []entities.QueryPayload) ([]entities.QueryResult, error)
}
