package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultMaxRequestSize bounds a serialized request read from a guest (1MiB).
const DefaultMaxRequestSize = 1 << 20

// HostFunc is a generic function signature for host functions.
// It accepts a context and a typed request, and returns a typed response.
// A returned error replaces the response with an ErrorResponse.
type HostFunc[Req any, Resp any] func(context.Context, Req) (Resp, error)

// ByteHandler is a function that accepts raw bytes (JSON) and returns raw bytes (JSON).
// This is the common interface both guest conventions call through.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler wraps a typed HostFunc into a ByteHandler.
// A request that does not decode becomes a VALIDATION_ERROR payload and a
// failing HostFunc becomes the payload ErrorResponseFrom picks; neither is
// returned as a Go error.
//
// Usage:
//
//	queryHandler := hostfuncs.NewJSONHandler(func(ctx context.Context, req entities.QueryPayload) (entities.QueryResult, error) {
//	    return store.Execute(ctx, req)
//	})
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err)).ToJSON(), nil
		}

		resp, err := fn(ctx, req)
		if err != nil {
			return ErrorResponseFrom(err).ToJSON(), nil
		}

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		return respBytes, nil
	}
}
