package host

import (
	"io"
	"log/slog"

	"github.com/reglet-dev/artefact-host/hostfuncs"
)

// Option defines a functional option for configuring the Executor.
type Option func(*Executor)

// WithHostFunctions configures the executor with a host function registry.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) {
		e.registry = registry
	}
}

// WithLogger sets the logger for bridge diagnostics and relayed guest logs.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithModuleName sets the import module guests link host functions from.
func WithModuleName(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.moduleName = name
		}
	}
}

// WithMaxRequestSize limits requests read from guest memory.
func WithMaxRequestSize(n uint32) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxRequestSize = n
		}
	}
}

// WithOutput sets where guest stdout and stderr go. Both default to discard.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		if stdout != nil {
			e.stdout = stdout
		}
		if stderr != nil {
			e.stderr = stderr
		}
	}
}
