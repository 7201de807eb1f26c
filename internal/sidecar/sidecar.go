package sidecar

import (
	"context"
	"os"
	"path/filepath"

	"prebuild/internal/fileutil"
	"prebuild/internal/platform"
	"prebuild/internal/services"
)

// Downloader fetches a URL to a local path.
type Downloader interface {
	Download(ctx context.Context, url, dest string, insecure bool) error
}

// CopyFunc performs a privileged copy after a plain copy was refused.
type CopyFunc func(ctx context.Context, runner services.Runner, src, dst string) error

// targets returns the staged file for every architecture packaged on id.
func targets(workDir, base string, id platform.ID) []string {
	archs := platform.TargetArchs(id)
	out := make([]string, 0, len(archs))
	for _, arch := range archs {
		out = append(out, filepath.Join(workDir, platform.SidecarName(base, id, arch)))
	}
	return out
}

func allExist(paths []string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return len(paths) > 0
}

// copyExecutable copies src to dst with 0755, falling back to elevated on a
// permission error.
func copyExecutable(ctx context.Context, runner services.Runner, elevated CopyFunc, src, dst string) error {
	err := fileutil.CopyFileMode(src, dst, fileutil.ExecutableMode)
	if err == nil {
		return fileutil.MakeExecutable(dst)
	}
	if !services.IsPermission(err) || elevated == nil {
		return err
	}
	return elevated(ctx, runner, src, dst)
}
