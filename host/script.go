package host

import (
	"context"
	"fmt"
	"os"

	"github.com/reglet-dev/artefact-host/hostfuncs"
	"github.com/reglet-dev/artefact-host/infrastructure/lua"
)

// ScriptHost runs Lua guests over the direct-value convention.
type ScriptHost struct {
	engine *lua.Engine
}

// NewScriptHost creates a sandboxed script guest served from registry.
func NewScriptHost(registry *hostfuncs.HandlerRegistry, opts ...lua.Option) *ScriptHost {
	return &ScriptHost{engine: lua.New(registry, opts...)}
}

// Eval runs code and returns its first return value as text.
func (s *ScriptHost) Eval(ctx context.Context, code string) (string, error) {
	return s.engine.Eval(ctx, code)
}

// EvalFile runs the script at path.
func (s *ScriptHost) EvalFile(ctx context.Context, path string) (string, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return s.engine.Eval(ctx, string(code))
}

// Output returns what the script printed.
func (s *ScriptHost) Output() string {
	return s.engine.Output()
}

// Close releases the script state.
func (s *ScriptHost) Close() {
	s.engine.Close()
}
