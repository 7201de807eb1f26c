//go:build !windows

package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func checkAccess(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	return nil
}
