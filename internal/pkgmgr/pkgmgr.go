package pkgmgr

import (
	"context"
	"log/slog"
	"os"

	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// vcpkgEnv lists the Windows variables vcpkg needs passed through explicitly.
var vcpkgEnv = []string{"SystemDrive", "SystemRoot", "windir"}

// Installer installs the OS packages the native build links against.
type Installer struct {
	runner services.Runner
	vcpkg  string
	logger *slog.Logger
	getenv func(string) string
}

// New constructs an Installer. vcpkg is the vcpkg executable used on Windows.
func New(runner services.Runner, vcpkg string, logger *slog.Logger) *Installer {
	if runner == nil {
		runner = services.ExecRunner{}
	}
	return &Installer{
		runner: runner,
		vcpkg:  vcpkg,
		logger: logging.NewComponentLogger(logger, "packages"),
		getenv: os.Getenv,
	}
}

// Plan returns the invocations Install would run for id.
func (i *Installer) Plan(id platform.ID, table manifest.Platform) []services.Invocation {
	switch id {
	case platform.Linux:
		if len(table.AptPackages) == 0 {
			return nil
		}
		invs := []services.Invocation{{Binary: "sudo", Args: []string{"apt-get", "update"}}}
		for _, pkg := range table.AptPackages {
			invs = append(invs, services.Invocation{Binary: "sudo", Args: []string{"apt-get", "install", "-y", pkg}})
		}
		return invs
	case platform.Windows:
		if len(table.VcpkgPackages) == 0 {
			return nil
		}
		env := make([]string, 0, len(vcpkgEnv))
		for _, key := range vcpkgEnv {
			env = append(env, key+"="+i.getenv(key))
		}
		args := append([]string{"install"}, table.VcpkgPackages...)
		return []services.Invocation{{Binary: i.vcpkg, Args: args, Env: env}}
	default:
		return nil
	}
}

// Install runs the package manager for id. The first failing command stops
// the sequence; the failure is recoverable.
func (i *Installer) Install(ctx context.Context, id platform.ID, table manifest.Platform) stage.Outcome {
	logger := logging.WithContext(ctx, i.logger)
	plan := i.Plan(id, table)
	if len(plan) == 0 {
		return stage.Skipped("no packages for " + id.String())
	}
	for _, inv := range plan {
		logger.Info("running package manager", logging.String("command", inv.String()))
		if err := i.runner.Run(ctx, inv); err != nil {
			wrapped := services.Wrap(services.ErrExternalTool, "", "install packages", inv.String(), err)
			logging.WarnWithContext(logger, "package installation failed", "package_install_failed",
				logging.Error(wrapped),
				logging.String(logging.FieldErrorHint, "install the packages manually and re-run"),
				logging.String(logging.FieldImpact, "native build may fail on missing libraries"),
			)
			return stage.Recoverable(wrapped)
		}
	}
	return stage.Success("installed packages via " + plan[0].Binary)
}
