package hostfuncs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Middleware is a function that wraps a ByteHandler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next ByteHandler) ByteHandler

// RegistryOption is a functional option for configuring a HandlerRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that catches panics and converts
// them to structured ErrorResponse JSON instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil // Return JSON error, not Go error
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware assigns each call a request id and logs its outcome.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			funcName := "unknown"
			requestID := uuid.NewString()
			if hc, ok := ctx.(HostContext); ok {
				funcName = hc.FunctionName()
				setRequestID(hc, requestID)
			}
			guest, _ := GuestFromContext(ctx)

			start := time.Now()
			logger.DebugContext(ctx, "host function invoked",
				"function", funcName,
				"request_id", requestID,
				"guest", guest,
				"request_bytes", len(payload))

			resp, err := next(ctx, payload)
			if err != nil {
				logger.ErrorContext(ctx, "host function failed",
					"function", funcName,
					"request_id", requestID,
					"error", err)
				return resp, err
			}
			logger.DebugContext(ctx, "host function completed",
				"function", funcName,
				"request_id", requestID,
				"response_bytes", len(resp),
				"duration", time.Since(start))
			return resp, nil
		}
	}
}

// CapabilityMiddleware rejects calls the checker does not allow with a
// CAPABILITY_DENIED payload.
func CapabilityMiddleware(checker *CapabilityChecker, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			hc, ok := ctx.(HostContext)
			if !ok {
				return next(ctx, payload)
			}
			if err := checker.CheckContext(ctx, hc.FunctionName()); err != nil {
				logger.WarnContext(ctx, "capability denied",
					"function", hc.FunctionName(),
					"request_id", RequestID(ctx),
					"error", err)
				return NewCapabilityDeniedError(err.Error()).ToJSON(), nil
			}
			return next(ctx, payload)
		}
	}
}
