//go:build !windows

package platform

import (
	"context"

	"golang.org/x/sys/unix"

	"prebuild/internal/fileutil"
	"prebuild/internal/services"
)

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return unix.Geteuid() == 0
}

// Unix hosts have no interactive elevation prompt; the copy is retried as-is
// so a transient failure (busy file, racing chmod) still gets a second chance.
func elevatedCopy(_ context.Context, _ services.Runner, src, dst string) error {
	return fileutil.CopyFileMode(src, dst, fileutil.ExecutableMode)
}
