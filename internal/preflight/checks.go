package preflight

import (
	"fmt"
	"os"

	"prebuild/internal/config"
	"prebuild/internal/deps"
	"prebuild/internal/platform"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the host tools provisioning on id shells out to.
// Both the run command and the status command use this list.
func CheckSystemDeps(id platform.ID, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.ForPlatform(id, cfg.Tools))
}
