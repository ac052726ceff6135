package hostfuncs

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/artefact-host/domain/errors"
)

func nopHandler(context.Context, []byte) ([]byte, error) { return []byte(`{}`), nil }

func TestNewRegistry(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		reg, err := NewRegistry()
		require.NoError(t, err)
		assert.Empty(t, reg.Names())
		assert.False(t, reg.Has(FuncDBQuery))
	})

	t.Run("names are sorted", func(t *testing.T) {
		reg, err := NewRegistry(
			WithByteHandler(FuncPredict, nopHandler),
			WithByteHandler(FuncDBQuery, nopHandler),
			WithByteHandler(FuncCategorise, nopHandler),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{FuncCategorise, FuncDBQuery, FuncPredict}, reg.Names())

		names := reg.Names()
		names[0] = "mutated"
		assert.Equal(t, FuncCategorise, reg.Names()[0])
	})

	t.Run("registration errors are joined", func(t *testing.T) {
		_, err := NewRegistry(
			WithByteHandler(FuncDBQuery, nopHandler),
			WithByteHandler(FuncDBQuery, nopHandler),
			WithByteHandler("", nopHandler),
			WithByteHandler(FuncPredict, nil),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate host function "db_query"`)
		assert.Contains(t, err.Error(), "name cannot be empty")
		assert.Contains(t, err.Error(), `"predict" has no handler`)
	})
}

func TestHandlerRegistry_Invoke(t *testing.T) {
	reg, err := NewRegistry(
		WithByteHandler(FuncDBQuery, func(_ context.Context, payload []byte) ([]byte, error) {
			return append([]byte("rows:"), payload...), nil
		}),
		WithByteHandler(FuncDBBatch, func(context.Context, []byte) ([]byte, error) {
			return nil, &errors.BatchError{Index: 1, Err: fmt.Errorf("no such table: t")}
		}),
		WithByteHandler(FuncONNXQuery, func(context.Context, []byte) ([]byte, error) {
			return nil, &errors.InvalidModelPathError{Path: "../x"}
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("dispatches by name", func(t *testing.T) {
		resp, err := reg.Invoke(ctx, FuncDBQuery, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "rows:x", string(resp))
	})

	t.Run("unknown function", func(t *testing.T) {
		resp, err := reg.Invoke(ctx, "host_shell", nil)
		require.NoError(t, err)

		var errResp ErrorResponse
		require.NoError(t, json.Unmarshal(resp, &errResp))
		assert.Equal(t, CodeNotFound, errResp.Code)
		assert.Contains(t, errResp.Error, "host_shell")
	})

	t.Run("handler errors are classified", func(t *testing.T) {
		tests := []struct {
			function string
			code     string
		}{
			{FuncDBBatch, CodeBatchAborted},
			{FuncONNXQuery, CodeValidation},
		}
		for _, tt := range tests {
			resp, err := reg.Invoke(ctx, tt.function, nil)
			require.Error(t, err)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal(resp, &errResp))
			assert.Equal(t, tt.code, errResp.Code, tt.function)
			assert.Equal(t, err.Error(), errResp.Error)
		}
	})
}

func TestHandlerRegistry_Invoke_SetsHostContext(t *testing.T) {
	var seen string
	reg, err := NewRegistry(WithByteHandler(FuncChatSendMessage, func(ctx context.Context, _ []byte) ([]byte, error) {
		if hc, ok := ctx.(HostContext); ok {
			seen = hc.FunctionName()
		}
		return nil, nil
	}))
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncChatSendMessage, nil)
	require.NoError(t, err)
	assert.Equal(t, FuncChatSendMessage, seen)
}

func TestWithMiddleware_Order(t *testing.T) {
	var calls []string
	trace := func(name string) Middleware {
		return func(next ByteHandler) ByteHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				calls = append(calls, name+">")
				resp, err := next(ctx, payload)
				calls = append(calls, "<"+name)
				return resp, err
			}
		}
	}

	reg, err := NewRegistry(
		WithMiddleware(trace("recover"), trace("log")),
		WithMiddleware(trace("capability")),
		WithByteHandler(FuncDBQuery, func(context.Context, []byte) ([]byte, error) {
			calls = append(calls, "handler")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = reg.Invoke(context.Background(), FuncDBQuery, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"recover>", "log>", "capability>", "handler", "<capability", "<log", "<recover",
	}, calls)
}
