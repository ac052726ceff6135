package wazero

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/artefact-host/hostfuncs"
)

// guestContext attaches the calling module's name as the guest identity,
// unless the caller already set one.
func guestContext(ctx context.Context, mod api.Module) context.Context {
	if _, ok := hostfuncs.GuestFromContext(ctx); ok {
		return ctx
	}
	return hostfuncs.WithGuest(ctx, GuestName(ctx, mod))
}

// GuestName returns the guest identity for mod, preferring the one carried by ctx.
func GuestName(ctx context.Context, mod api.Module) string {
	if name, ok := hostfuncs.GuestFromContext(ctx); ok {
		return name
	}
	if mod == nil {
		return ""
	}
	return mod.Name()
}
