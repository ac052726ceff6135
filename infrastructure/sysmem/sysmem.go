// Package sysmem reports total host memory for tier selection.
package sysmem

import (
	"fmt"

	"github.com/reglet-dev/artefact-host/domain/ports"
)

var _ ports.MemoryProbe = Probe{}

// Probe reads total physical memory from the operating system. A non-zero
// Override is returned instead, which lets operators pin a tier.
type Probe struct {
	Override uint64
}

// TotalMemory returns the total memory in bytes.
func (p Probe) TotalMemory() (uint64, error) {
	if p.Override > 0 {
		return p.Override, nil
	}
	total, err := totalMemory()
	if err != nil {
		return 0, fmt.Errorf("read total memory: %w", err)
	}
	return total, nil
}
