package hostfuncs

import (
	"context"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
)

// Capability function names.
const (
	FuncDBQuery         = "db_query"
	FuncDBBatch         = "db_batch"
	FuncONNXQuery       = "onnx_query"
	FuncChatSendMessage = "chat_send_message"
	FuncChatStoreMemory = "chat_store_memory"
	FuncPredict         = "predict"
	FuncCategorise      = "categorise"
)

var functionCapabilities = map[string]entities.Capability{
	FuncDBQuery:         entities.CapabilityDB,
	FuncDBBatch:         entities.CapabilityDB,
	FuncONNXQuery:       entities.CapabilityONNX,
	FuncChatSendMessage: entities.CapabilityChat,
	FuncChatStoreMemory: entities.CapabilityChat,
	FuncPredict:         entities.CapabilityChat,
	FuncCategorise:      entities.CapabilityChat,
}

// FunctionCapability returns the family a capability function belongs to.
func FunctionCapability(function string) (entities.Capability, bool) {
	c, ok := functionCapabilities[function]
	return c, ok
}

// CapabilityChecker decides which capability functions a guest may call.
// Grants are looked up by guest name; guests without an entry get the
// default set.
type CapabilityChecker struct {
	grants   map[string]entities.CapabilitySet
	defaults entities.CapabilitySet
}

// CapabilityCheckerOption configures a CapabilityChecker.
type CapabilityCheckerOption func(*CapabilityChecker)

// WithGuestGrants sets the families granted to one named guest.
func WithGuestGrants(guest string, caps entities.CapabilitySet) CapabilityCheckerOption {
	return func(c *CapabilityChecker) {
		c.grants[guest] = caps
	}
}

// NewCapabilityChecker creates a checker granting defaults to every guest
// without its own entry.
func NewCapabilityChecker(defaults entities.CapabilitySet, opts ...CapabilityCheckerOption) *CapabilityChecker {
	c := &CapabilityChecker{
		grants:   make(map[string]entities.CapabilitySet),
		defaults: defaults,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Granted returns the families granted to guest.
func (c *CapabilityChecker) Granted(guest string) entities.CapabilitySet {
	if caps, ok := c.grants[guest]; ok {
		return caps
	}
	return c.defaults
}

// Check returns a CapabilityError when guest may not call function.
// Functions outside the capability surface are left to the registry.
func (c *CapabilityChecker) Check(guest, function string) error {
	required, ok := FunctionCapability(function)
	if !ok {
		return nil
	}
	if c.Granted(guest).Has(required) {
		return nil
	}
	return &errors.CapabilityError{Required: string(required), Function: function}
}

// Allows reports whether guest may call function.
func (c *CapabilityChecker) Allows(guest, function string) bool {
	return c.Check(guest, function) == nil
}

// CheckContext checks the guest recorded in ctx by WithGuest.
func (c *CapabilityChecker) CheckContext(ctx context.Context, function string) error {
	guest, _ := GuestFromContext(ctx)
	return c.Check(guest, function)
}
