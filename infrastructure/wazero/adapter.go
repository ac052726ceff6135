package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/artefact-host/hostfuncs"
)

// DefaultModuleName is the import module guests resolve host functions from.
const DefaultModuleName = "env"

// AdapterConfig holds configuration for the wazero adapter.
type AdapterConfig struct {
	Logger *slog.Logger

	// ModuleName is the host module name (default: "env").
	ModuleName string

	// CustomHandlers are exported as is, next to the call/copy pairs.
	CustomHandlers []CustomHandler

	// MaxRequestSize limits the size of a request read from guest memory.
	// Default is 1MB.
	MaxRequestSize uint32
}

// CustomHandler represents a wazero handler outside the call/copy convention,
// such as log_message.
type CustomHandler struct {
	// Handler is the wazero GoModuleFunc implementation.
	Handler api.GoModuleFunc

	// Name is the exported function name.
	Name string

	// ParamTypes are the WASM parameter types.
	ParamTypes []api.ValueType

	// ResultTypes are the WASM result types.
	ResultTypes []api.ValueType
}

// AdapterOption configures the adapter.
type AdapterOption func(*AdapterConfig)

// WithModuleName sets the host module name (default: "env").
func WithModuleName(name string) AdapterOption {
	return func(c *AdapterConfig) {
		c.ModuleName = name
	}
}

// WithMaxRequestSize sets the maximum request size from guest memory.
func WithMaxRequestSize(size uint32) AdapterOption {
	return func(c *AdapterConfig) {
		if size > 0 {
			c.MaxRequestSize = size
		}
	}
}

// WithCustomHandler adds a custom wazero handler.
func WithCustomHandler(h CustomHandler) AdapterOption {
	return func(c *AdapterConfig) {
		c.CustomHandlers = append(c.CustomHandlers, h)
	}
}

// WithLogger sets the logger used for protocol diagnostics.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *AdapterConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func defaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		ModuleName:     DefaultModuleName,
		MaxRequestSize: hostfuncs.DefaultMaxRequestSize,
		Logger:         slog.Default(),
	}
}

// Exported names of the call/copy pair for one capability function.
func callExport(function string) string { return "host_" + function }
func copyExport(function string) string { return "host_copy_" + function + "_result" }

// legacyCopyExports are the copy names of the first two channels, kept for
// guests built against them.
var legacyCopyExports = map[string]string{
	hostfuncs.FuncDBQuery:   "host_copy_result",
	hostfuncs.FuncONNXQuery: "host_copy_onnx_result",
}

// Bridge owns one Channel per registered capability function.
type Bridge struct {
	channels map[string]*Channel
	names    []string
}

// NewBridge creates a channel for every function in registry.
func NewBridge(registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) *Bridge {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Bridge{channels: make(map[string]*Channel)}
	for _, name := range registry.Names() {
		b.channels[name] = NewChannel(name, registry, cfg.MaxRequestSize, cfg.Logger)
		b.names = append(b.names, name)
	}
	return b
}

// Channel returns the channel serving function.
func (b *Bridge) Channel(function string) (*Channel, bool) {
	c, ok := b.channels[function]
	return c, ok
}

// Release drops the staging state every channel holds for guest.
func (b *Bridge) Release(guest api.Module) {
	for _, c := range b.channels {
		c.Release(guest)
	}
}

// RegisterWithRuntime instantiates the host module exporting, for every
// function in registry, host_<name>(ptr, len) -> i32 and
// host_copy_<name>_result(dest, max) -> i32.
//
// Example:
//
//	registry, _ := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.DatabaseBundle(store)),
//	)
//	bridge, err := wazero.RegisterWithRuntime(ctx, runtime, registry)
func RegisterWithRuntime(ctx context.Context, runtime wazero.Runtime, registry *hostfuncs.HandlerRegistry, opts ...AdapterOption) (*Bridge, error) {
	cfg := defaultAdapterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	bridge := NewBridge(registry, opts...)

	i32 := api.ValueTypeI32
	builder := runtime.NewHostModuleBuilder(cfg.ModuleName)
	for _, name := range bridge.names {
		ch := bridge.channels[name]

		call := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			ptr, length := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
			stack[0] = api.EncodeI32(ch.Call(guestContext(ctx, mod), mod, mod.Memory(), ptr, length))
		})
		cp := api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			dest, maxLen := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
			stack[0] = api.EncodeI32(ch.Copy(guestContext(ctx, mod), mod, mod.Memory(), dest, maxLen))
		})

		builder.NewFunctionBuilder().
			WithGoModuleFunction(call, []api.ValueType{i32, i32}, []api.ValueType{i32}).
			Export(callExport(name))
		builder.NewFunctionBuilder().
			WithGoModuleFunction(cp, []api.ValueType{i32, i32}, []api.ValueType{i32}).
			Export(copyExport(name))
		if legacy, ok := legacyCopyExports[name]; ok {
			builder.NewFunctionBuilder().
				WithGoModuleFunction(cp, []api.ValueType{i32, i32}, []api.ValueType{i32}).
				Export(legacy)
		}
	}

	for _, ch := range cfg.CustomHandlers {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(ch.Handler, ch.ParamTypes, ch.ResultTypes).
			Export(ch.Name)
	}

	if _, err := builder.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("instantiate host module %q: %w", cfg.ModuleName, err)
	}
	return bridge, nil
}
