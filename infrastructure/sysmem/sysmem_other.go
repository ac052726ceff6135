//go:build !linux && !darwin

package sysmem

import "errors"

func totalMemory() (uint64, error) {
	return 0, errors.New("memory detection is not supported on this platform")
}
