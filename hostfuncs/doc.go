// Package hostfuncs implements the capability functions guests call.
//
// Handlers take and return JSON bytes and have no guest-runtime dependency:
// the WASM adapter and the script engine both dispatch through one
// HandlerRegistry. Failures become ErrorResponse payloads rather than traps.
package hostfuncs
