package provision

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"prebuild/internal/fileutil"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// stageCopies copies each fetched file to <name>-<triple> for every target
// architecture. Existing copies are kept; failures are recoverable.
func stageCopies(ctx context.Context, workDir string, id platform.ID, copies []manifest.StagedCopy, logger *slog.Logger) stage.Outcome {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "staged-copy"))
	var outcomes []stage.Outcome
	for _, cp := range copies {
		src := filepath.Join(workDir, filepath.FromSlash(cp.Source))
		for _, arch := range platform.TargetArchs(id) {
			dst := filepath.Join(workDir, platform.SidecarName(cp.Name, id, arch))
			if fileutil.Exists(dst) {
				outcomes = append(outcomes, stage.Skipped(filepath.Base(dst)+" already staged"))
				continue
			}
			if _, err := os.Stat(src); err != nil {
				wrapped := services.Wrap(services.ErrNotFound, "", "stage copy", src, err)
				logging.WarnWithContext(logger, "copy source missing", "staged_copy_missing",
					logging.String("source", src),
					logging.Error(wrapped),
					logging.String(logging.FieldImpact, "package will not contain "+filepath.Base(dst)),
				)
				outcomes = append(outcomes, stage.Recoverable(wrapped))
				continue
			}
			if err := fileutil.CopyFileMode(src, dst, fileutil.ExecutableMode); err != nil {
				wrapped := services.Wrap(services.ErrExternalTool, "", "stage copy", dst, err)
				logging.WarnWithContext(logger, "staged copy failed", "staged_copy_failed",
					logging.Error(wrapped),
					logging.String(logging.FieldImpact, "package will not contain "+filepath.Base(dst)),
				)
				outcomes = append(outcomes, stage.Recoverable(wrapped))
				continue
			}
			if err := fileutil.MakeExecutable(dst); err != nil {
				logging.WarnWithContext(logger, "could not mark copy executable", "staged_copy_chmod_failed",
					logging.String("path", dst),
					logging.Error(err),
				)
			}
			logger.Info("staged copy", logging.String("source", src), logging.String("dest", dst))
			outcomes = append(outcomes, stage.Success("staged "+filepath.Base(dst)))
		}
	}
	if len(outcomes) == 0 {
		return stage.Skipped("nothing to copy")
	}
	return stage.Merge(outcomes...)
}
