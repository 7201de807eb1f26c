//go:build windows

package platform

import (
	"context"

	"golang.org/x/sys/windows"

	"prebuild/internal/services"
)

// IsElevated reports whether the process token is elevated.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

func elevatedCopy(ctx context.Context, runner services.Runner, src, dst string) error {
	return runner.Run(ctx, ElevatedCopyInvocation(src, dst))
}
