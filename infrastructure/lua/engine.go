// Package lua runs script guests on gopher-lua and exposes host functions to
// them over the direct-value convention: a global takes the serialized
// request (or native arguments) and returns the serialized result.
//
// The state is sandboxed: only the base, table, string and math libraries are
// opened, and file loading is removed. Output from print is captured in a
// bounded buffer instead of going to stdout.
package lua

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/reglet-dev/artefact-host/hostfuncs"
)

const (
	// DefaultGuestName identifies script guests to capability checks.
	DefaultGuestName = "script"
	// DefaultOutputLimit caps captured print output (1MiB).
	DefaultOutputLimit = 1 << 20
)

// Engine is one sandboxed Lua state bound to a handler registry.
// Evaluations are serialized; globals persist between them.
type Engine struct {
	registry *hostfuncs.HandlerRegistry
	logger   *slog.Logger
	output   *outputBuffer
	state    *lua.LState
	guest    string
	mu       sync.Mutex
}

type engineConfig struct {
	logger      *slog.Logger
	guest       string
	outputLimit int
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger receiving console.log lines and bridge failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGuestName sets the guest identity used for capability grants.
func WithGuestName(name string) Option {
	return func(c *engineConfig) {
		if name != "" {
			c.guest = name
		}
	}
}

// WithOutputLimit caps the captured print output in bytes.
func WithOutputLimit(limit int) Option {
	return func(c *engineConfig) {
		if limit > 0 {
			c.outputLimit = limit
		}
	}
}

// New creates a sandboxed state with the bridge globals for every function
// in registry installed.
func New(registry *hostfuncs.HandlerRegistry, opts ...Option) *Engine {
	cfg := engineConfig{
		logger:      slog.Default(),
		guest:       DefaultGuestName,
		outputLimit: DefaultOutputLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	// Each opener leaves its module table on the stack.
	L.SetTop(0)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("module", lua.LNil)

	e := &Engine{
		registry: registry,
		logger:   cfg.logger,
		output:   newOutputBuffer(cfg.outputLimit),
		state:    L,
		guest:    cfg.guest,
	}
	e.installOutput(L)
	registerJSONModule(L)
	e.installBridge(L)
	return e
}

// Guest returns the guest identity of this engine.
func (e *Engine) Guest() string {
	return e.guest
}

// Eval runs code and returns its first return value converted to a string,
// or "" when the chunk returns nothing. Cancelling ctx stops the script.
func (e *Engine) Eval(ctx context.Context, code string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	L := e.state
	L.SetContext(ctx)
	defer L.RemoveContext()
	defer L.SetTop(0)

	fn, err := L.LoadString(code)
	if err != nil {
		return "", fmt.Errorf("compile script: %w", err)
	}
	base := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return "", fmt.Errorf("run script: %w", err)
	}
	if L.GetTop() == base {
		return "", nil
	}
	ret := L.Get(base + 1)
	if ret == lua.LNil {
		return "", nil
	}
	return L.ToStringMeta(ret).String(), nil
}

// Output returns everything printed so far.
func (e *Engine) Output() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output.String()
}

// OutputTruncated reports whether print output exceeded the limit.
func (e *Engine) OutputTruncated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output.Truncated()
}

// Close releases the Lua state.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Close()
}

func (e *Engine) installOutput(L *lua.LState) {
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		e.output.WriteLine(joinArgs(L))
		return 0
	}))

	console := L.NewTable()
	L.SetField(console, "log", L.NewFunction(func(L *lua.LState) int {
		e.logger.InfoContext(luaContext(L), joinArgs(L), "source", "guest", "guest", e.guest)
		return 0
	}))
	L.SetGlobal("console", console)
}

func joinArgs(L *lua.LState) string {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, "\t")
}

func luaContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
