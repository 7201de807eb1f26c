package provision

import (
	"context"

	"prebuild/internal/dylib"
	"prebuild/internal/fetch"
	"prebuild/internal/handoff"
	"prebuild/internal/locator"
	"prebuild/internal/pkgmgr"
	"prebuild/internal/platform"
	"prebuild/internal/sidecar"
	"prebuild/internal/stage"
)

// stages returns the handlers for p's platform in execution order.
func (p *Pipeline) stages() []stage.Handler {
	workDir := p.cfg.Paths.WorkDir
	handlers := []stage.Handler{
		stage.Func{StageName: StagePackages, Fn: func(ctx context.Context) stage.Outcome {
			return pkgmgr.New(p.runner, p.cfg.Tools.Vcpkg, p.logger).Install(ctx, p.id, p.table)
		}},
		stage.Func{StageName: StageBinary, Fn: func(ctx context.Context) stage.Outcome {
			stager := locator.NewStager(workDir, p.logger,
				locator.WithInspector(p.inspector),
				locator.WithRunner(p.runner),
				locator.WithElevatedCopy(p.elevated),
				locator.Disabled(p.cfg.Environment.SkipBinarySetup),
			)
			return stager.StageAll(ctx, p.id, p.table)
		}},
	}

	if p.id == platform.MacOS {
		handlers = append(handlers, stage.Func{StageName: StageDylib, Fn: func(ctx context.Context) stage.Outcome {
			binaries := make(map[platform.Arch]string)
			for _, arch := range platform.TargetArchs(p.id) {
				binaries[arch] = locator.StagedPath(workDir, p.id, arch)
			}
			patcher := dylib.NewPatcher(p.runner, p.loads, p.logger)
			return patcher.PatchStaged(ctx, binaries, p.table.Dylib.Libraries, dylib.ModeFor(p.cfg.Environment.DevMode))
		}})
	}

	handlers = append(handlers, stage.Func{StageName: StageDeps, Fn: func(ctx context.Context) stage.Outcome {
		return fetch.NewFetcher(workDir, p.cfg.Paths.CacheDir, p.downloader, p.logger).EnsureAll(ctx, p.table.Dependencies, p.features)
	}})

	if p.id == platform.MacOS && len(p.table.StagedCopies) > 0 {
		handlers = append(handlers, stage.Func{StageName: StageFFmpegBin, Fn: func(ctx context.Context) stage.Outcome {
			return stageCopies(ctx, workDir, p.id, p.table.StagedCopies, p.logger)
		}})
	}

	handlers = append(handlers,
		stage.Func{StageName: StageDeno, Fn: func(ctx context.Context) stage.Outcome {
			deno := sidecar.NewDeno(workDir, p.runner, p.downloader, p.logger,
				sidecar.WithLookPath(p.lookPath),
				sidecar.WithElevatedCopy(p.elevated),
			)
			return deno.Ensure(ctx, p.id, p.table.Deno)
		}},
		stage.Func{StageName: StageSidecar, Fn: func(ctx context.Context) stage.Outcome {
			return sidecar.NewOllama(workDir, p.downloader, p.logger).Ensure(ctx, p.id, p.table.Sidecar)
		}},
		stage.Func{StageName: StageHandoff, Fn: func(ctx context.Context) stage.Outcome {
			return handoff.New(p.runner, p.out, p.logger).Run(ctx, p.handoffOptions())
		}},
	)
	return handlers
}

func (p *Pipeline) handoffOptions() handoff.Options {
	return handoff.Options{
		Platform:   p.id,
		Exports:    handoff.NewExports(p.cfg.Paths.WorkDir, p.cfg.Tools),
		ProjectDir: p.cfg.Paths.ProjectDir,
		StartDir:   p.startDir,
		CIEnvFile:  p.cfg.Environment.CIEnvFile,
		Action:     p.features.Action(),
		Bun:        p.cfg.Tools.Bun,
	}
}
