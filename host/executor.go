package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/reglet-dev/artefact-host/hostfuncs"
	hostwazero "github.com/reglet-dev/artefact-host/infrastructure/wazero"
	"github.com/reglet-dev/artefact-host/log"
)

// Executor manages the lifecycle of WASM guests.
type Executor struct {
	runtime        wazero.Runtime
	registry       *hostfuncs.HandlerRegistry
	bridge         *hostwazero.Bridge
	relay          *log.Relay
	logger         *slog.Logger
	stdout         io.Writer
	stderr         io.Writer
	moduleName     string
	maxRequestSize uint32
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:         slog.Default(),
		stdout:         io.Discard,
		stderr:         io.Discard,
		moduleName:     hostwazero.DefaultModuleName,
		maxRequestSize: hostfuncs.DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.relay = log.NewRelay(e.logger)

	// Default registry if not provided
	if e.registry == nil {
		reg, err := hostfuncs.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		e.registry = reg
	}

	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostFunctions(ctx); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases resources held by the executor, including every guest.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Registry returns the capability registry guests are served from.
func (e *Executor) Registry() *hostfuncs.HandlerRegistry {
	return e.registry
}

// GuestInstance is an instantiated WASM guest.
type GuestInstance struct {
	module api.Module
	bridge *hostwazero.Bridge
}

// LoadGuest instantiates a WASM module under name. A command module runs its
// _start export here; a reactor gets its _initialize export called. An exit
// with status 0 is not an error.
func (e *Executor) LoadGuest(ctx context.Context, name string, wasmBytes []byte) (*GuestInstance, error) {
	cfg := wazero.NewModuleConfig().
		WithName(name).
		WithStdout(e.stdout).
		WithStderr(e.stderr)

	mod, err := e.runtime.InstantiateWithConfig(ctx, wasmBytes, cfg)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
			e.logger.DebugContext(ctx, "guest exited", "guest", name)
			return &GuestInstance{module: mod, bridge: e.bridge}, nil
		}
		return nil, fmt.Errorf("failed to instantiate module %q: %w", name, err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			_ = mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	return &GuestInstance{module: mod, bridge: e.bridge}, nil
}

// Name returns the guest name.
func (g *GuestInstance) Name() string {
	if g.module == nil {
		return ""
	}
	return g.module.Name()
}

// Module returns the underlying wazero module, or nil when the guest has
// already exited.
func (g *GuestInstance) Module() api.Module {
	return g.module
}

// Call invokes an exported function of the guest.
func (g *GuestInstance) Call(ctx context.Context, export string, params ...uint64) ([]uint64, error) {
	if g.module == nil {
		return nil, fmt.Errorf("guest has exited")
	}
	fn := g.module.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("export %q not found", export)
	}
	return fn.Call(ctx, params...)
}

// Close drops any staged results and closes the module.
func (g *GuestInstance) Close(ctx context.Context) error {
	if g.module == nil {
		return nil
	}
	g.bridge.Release(g.module)
	return g.module.Close(ctx)
}
