// Package ports defines the interfaces the host components depend on.
// Domain and application code depends on these abstractions, and the
// infrastructure adapters implement them.
package ports
