package hostfuncs

import (
	"context"
	stdErrors "errors"
	"fmt"
	"maps"
	"slices"
)

// HandlerRegistry maps capability function names (db_query, predict, ...)
// to their wrapped handlers. It is fixed at construction, so both bridges
// read it without locking.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errs       []error
}

// NewRegistry builds a registry from bundles, single handlers and
// middleware. Every middleware wraps every handler; the first one given is
// the outermost. All registration errors are reported together.
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware(), LoggingMiddleware(logger)),
//	    WithBundle(DatabaseBundle(store)),
//	    WithBundle(ChatBundle(orchestrator)),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if err := stdErrors.Join(b.errs...); err != nil {
		return nil, err
	}

	r := &HandlerRegistry{
		handlers: make(map[string]ByteHandler, len(b.handlers)),
		names:    slices.Sorted(maps.Keys(b.handlers)),
	}
	for name, h := range b.handlers {
		for _, mw := range slices.Backward(b.middleware) {
			h = mw(h)
		}
		r.handlers[name] = h
	}
	return r, nil
}

// Invoke runs the named function on a serialized request. The returned bytes
// are always something a guest can read: an unknown function gives a
// NOT_FOUND envelope and a handler error is classified by ErrorResponseFrom.
// That error is also returned so the bridge can log it.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	resp, err := h(HostContextFrom(ctx, name), payload)
	if err != nil {
		return ErrorResponseFrom(err).ToJSON(), err
	}
	return resp, nil
}

// Has reports whether name was registered. Bridges only expose functions
// the registry has.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names lists the registered functions in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (b *registryBuilder) add(name string, h ByteHandler) {
	switch {
	case name == "":
		b.errs = append(b.errs, fmt.Errorf("host function name cannot be empty"))
	case h == nil:
		b.errs = append(b.errs, fmt.Errorf("host function %q has no handler", name))
	default:
		if _, dup := b.handlers[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("duplicate host function %q", name))
			return
		}
		b.handlers[name] = h
	}
}

// WithByteHandler registers a handler that works on raw JSON bytes.
func WithByteHandler(name string, h ByteHandler) RegistryOption {
	return func(b *registryBuilder) { b.add(name, h) }
}

// WithMiddleware appends middleware around every handler.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
