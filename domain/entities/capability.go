package entities

import (
	"fmt"
	"sort"
	"strings"
)

// Capability names a family of host functions a guest may be granted.
type Capability string

const (
	// CapabilityDB covers db_query and db_batch.
	CapabilityDB Capability = "db"
	// CapabilityONNX covers onnx_query.
	CapabilityONNX Capability = "onnx"
	// CapabilityChat covers chat_send_message, chat_store_memory, predict and categorise.
	CapabilityChat Capability = "chat"
)

// AllCapabilities lists every known family in a stable order.
func AllCapabilities() []Capability {
	return []Capability{CapabilityDB, CapabilityONNX, CapabilityChat}
}

// Valid reports whether c is a known family.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityDB, CapabilityONNX, CapabilityChat:
		return true
	default:
		return false
	}
}

// CapabilitySet is the set of families granted to a guest.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given families.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// ParseCapabilities parses names such as "db", "chat". The name "all" grants
// every family. Empty entries are ignored.
func ParseCapabilities(names []string) (CapabilitySet, error) {
	s := NewCapabilitySet()
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case name == "":
			continue
		case name == "all":
			for _, c := range AllCapabilities() {
				s[c] = struct{}{}
			}
		case Capability(name).Valid():
			s[Capability(name)] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown capability %q", raw)
		}
	}
	return s, nil
}

// Has reports whether c is granted. A nil set grants nothing.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the granted families sorted by name.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders the set as a comma separated list.
func (s CapabilitySet) String() string {
	names := make([]string, 0, len(s))
	for _, c := range s.List() {
		names = append(names, string(c))
	}
	return strings.Join(names, ",")
}
