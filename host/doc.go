// Package host runs guests against the host capabilities.
//
// Executor owns a wazero runtime with WASI preview1 and exposes the
// capability registry over the linear-memory call/copy convention.
// ScriptHost owns a sandboxed Lua state and exposes the same registry over
// the direct-value convention. Assemble builds the store, the inference
// registry, the conversation orchestrator and the registry both share.
package host
