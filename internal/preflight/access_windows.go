//go:build windows

package preflight

import (
	"fmt"
	"os"
)

// checkAccess probes writability with a scratch file; Windows ACLs are not
// reflected in mode bits.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".prebuild-probe-*")
	if err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
