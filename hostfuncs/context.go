package hostfuncs

import (
	"context"
)

// HostContext is the context a handler receives from HandlerRegistry.Invoke.
// It names the capability function being served, the guest that called it,
// and the request id LoggingMiddleware assigned.
type HostContext interface {
	context.Context

	FunctionName() string
	Guest() string
	RequestID() string
}

type callContext struct {
	context.Context
	function  string
	guest     string
	requestID string
}

func (c *callContext) FunctionName() string { return c.function }
func (c *callContext) Guest() string        { return c.guest }
func (c *callContext) RequestID() string    { return c.requestID }

// NewHostContext starts a call of function. The guest is taken from ctx.
func NewHostContext(ctx context.Context, function string) HostContext {
	guest, _ := GuestFromContext(ctx)
	return &callContext{Context: ctx, function: function, guest: guest}
}

// HostContextFrom reuses ctx when it already serves function, so middleware
// and the handler see the same request id.
func HostContextFrom(ctx context.Context, function string) HostContext {
	if hc, ok := ctx.(HostContext); ok && hc.FunctionName() == function {
		return hc
	}
	return NewHostContext(ctx, function)
}

func setRequestID(ctx context.Context, id string) bool {
	c, ok := ctx.(*callContext)
	if ok {
		c.requestID = id
	}
	return ok
}

// RequestID returns the id of the current call, or "" outside one.
func RequestID(ctx context.Context) string {
	if hc, ok := ctx.(HostContext); ok {
		return hc.RequestID()
	}
	return ""
}

type guestKey struct{}

// WithGuest tags ctx with the name of the calling guest module.
func WithGuest(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, guestKey{}, name)
}

// GuestFromContext returns the guest name set by WithGuest.
func GuestFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(guestKey{}).(string)
	return name, ok
}
