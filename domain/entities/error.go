package entities

import (
	"fmt"
	"strings"
)

// ErrorDetail is the structured form of a host-side failure. Handlers turn it
// into the guest-facing error envelope; logs keep the full chain.
// Types: "store", "inference", "protocol", "capability", "validation", "config", "internal".
type ErrorDetail struct {
	// Wrapped is the cause, when the failure wraps a classified one.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details carries extra context such as the failing batch index.
	Details map[string]any `json:"details,omitempty"`

	Message string `json:"message"`
	Type    string `json:"type"`

	// Code narrows Type, e.g. "busy" or "model_not_found".
	Code string `json:"code,omitempty"`

	// IsTimeout marks a store that stayed locked past its busy timeout.
	IsTimeout bool `json:"is_timeout,omitempty"`

	// IsNotFound marks a missing model file or model family.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// Error renders "type [code]: message", followed by the wrapped chain.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != "internal" {
		b.WriteString(e.Type)
		if e.Code != "" {
			fmt.Fprintf(&b, " [%s]", e.Code)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Root returns the innermost detail of the chain.
func (e *ErrorDetail) Root() *ErrorDetail {
	for e != nil && e.Wrapped != nil {
		e = e.Wrapped
	}
	return e
}
