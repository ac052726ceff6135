package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	domainerrors "github.com/reglet-dev/artefact-host/domain/errors"
	"github.com/reglet-dev/artefact-host/hostfuncs"
)

// Memory is the slice of a guest's linear memory a channel touches.
// api.Memory satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// Channel is one call/copy pair. A call runs the capability function and
// stages its serialized response for the calling guest instance; the matching
// copy moves the staged bytes into guest memory and returns the channel to idle.
//
// Staging is held per guest instance, so concurrent guests never see each
// other's results. Within one instance a second call before the copy is
// refused.
type Channel struct {
	registry       *hostfuncs.HandlerRegistry
	logger         *slog.Logger
	staged         map[any][]byte
	function       string
	mu             sync.Mutex
	maxRequestSize uint32
}

// NewChannel creates the channel serving function through registry.
func NewChannel(function string, registry *hostfuncs.HandlerRegistry, maxRequestSize uint32, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRequestSize == 0 {
		maxRequestSize = hostfuncs.DefaultMaxRequestSize
	}
	return &Channel{
		function:       function,
		registry:       registry,
		maxRequestSize: maxRequestSize,
		logger:         logger,
		staged:         make(map[any][]byte),
	}
}

// Function returns the capability function this channel serves.
func (c *Channel) Function() string {
	return c.function
}

// Call reads length bytes at ptr as the request, dispatches it and stages the
// response for key. It returns the staged byte count, or -1 when key already
// has a staged response that was never copied.
//
// Failures of the request itself (unreadable range, oversize payload,
// malformed JSON, a failing handler) are staged as an error payload rather
// than trapping the guest.
func (c *Channel) Call(ctx context.Context, key any, mem Memory, ptr, length uint32) int32 {
	c.mu.Lock()
	_, busy := c.staged[key]
	c.mu.Unlock()
	if busy {
		err := &domainerrors.ProtocolError{Channel: c.function, Reason: "call while a result is staged"}
		c.logger.WarnContext(ctx, "bridge protocol violation", "function", c.function, "error", err)
		return -1
	}

	payload := c.dispatch(ctx, mem, ptr, length)

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent call on the same instance may have won the race.
	if _, busy := c.staged[key]; busy {
		c.logger.WarnContext(ctx, "bridge protocol violation", "function", c.function,
			"error", &domainerrors.ProtocolError{Channel: c.function, Reason: "concurrent call on one instance"})
		return -1
	}
	c.staged[key] = payload
	return int32(len(payload))
}

func (c *Channel) dispatch(ctx context.Context, mem Memory, ptr, length uint32) []byte {
	if length > c.maxRequestSize {
		return hostfuncs.NewValidationError(
			fmt.Sprintf("request size %d exceeds limit %d", length, c.maxRequestSize)).ToJSON()
	}

	var request []byte
	if length > 0 {
		data, ok := mem.Read(ptr, length)
		if !ok {
			return hostfuncs.ErrorResponseFrom(&domainerrors.GuestMemoryError{Op: "read", Offset: ptr, Length: length}).ToJSON()
		}
		// The guest may reuse its buffer once the call returns.
		request = append([]byte(nil), data...)
	}

	resp, err := c.registry.Invoke(ctx, c.function, request)
	if err != nil {
		c.logger.ErrorContext(ctx, "host function failed", "function", c.function, "error", err)
	}
	return resp
}

// Copy writes at most maxLen staged bytes for key to dest and returns the
// number written. The remainder of a truncated result is discarded. Copy on
// an idle channel returns 0. If dest is outside guest memory it returns -1 and
// the result stays staged.
func (c *Channel) Copy(ctx context.Context, key any, mem Memory, dest, maxLen uint32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.staged[key]
	if !ok {
		return 0
	}

	n := uint32(len(payload))
	if maxLen < n {
		n = maxLen
	}
	if n > 0 && !mem.Write(dest, payload[:n]) {
		c.logger.WarnContext(ctx, "bridge copy out of range", "function", c.function,
			"error", &domainerrors.GuestMemoryError{Op: "write", Offset: dest, Length: n})
		return -1
	}

	delete(c.staged, key)
	return int32(n)
}

// Staged reports whether key has a result waiting to be copied.
func (c *Channel) Staged(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.staged[key]
	return ok
}

// Release discards any result staged for key.
func (c *Channel) Release(key any) {
	c.mu.Lock()
	delete(c.staged, key)
	c.mu.Unlock()
}
