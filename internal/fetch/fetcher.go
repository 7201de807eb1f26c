package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"prebuild/internal/archive"
	"prebuild/internal/features"
	"prebuild/internal/fileutil"
	"prebuild/internal/layout"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

const lockRetryDelay = 250 * time.Millisecond

// Fetcher makes dependency directories exist under the staging directory.
type Fetcher struct {
	workDir    string
	lockDir    string
	downloader *Downloader
	logger     *slog.Logger
}

// NewFetcher constructs a fetcher staging into workDir. Advisory lock files
// live in lockDir so they do not end up in the package payload.
func NewFetcher(workDir, lockDir string, downloader *Downloader, logger *slog.Logger) *Fetcher {
	if lockDir == "" {
		lockDir = workDir
	}
	return &Fetcher{
		workDir:    workDir,
		lockDir:    lockDir,
		downloader: downloader,
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
}

// EnsureAll runs Ensure for every dependency. A failure never stops the
// remaining dependencies; the merged outcome reports all of them.
func (f *Fetcher) EnsureAll(ctx context.Context, deps []manifest.Dependency, set features.Set) stage.Outcome {
	if len(deps) == 0 {
		return stage.Skipped("no dependencies for this platform")
	}
	outcomes := make([]stage.Outcome, 0, len(deps))
	for _, dep := range deps {
		outcomes = append(outcomes, f.Ensure(ctx, dep, set))
	}
	return stage.Merge(outcomes...)
}

// Ensure fetches dep unless its canonical directory already exists. When the
// directory exists and the dependency's force feature is not set, no network
// or extraction work happens.
func (f *Fetcher) Ensure(ctx context.Context, dep manifest.Dependency, set features.Set) stage.Outcome {
	ctx = services.WithArtifact(ctx, dep.Name)
	logger := logging.WithContext(ctx, f.logger)

	if dep.RequireFeature != "" && !set.Has(dep.RequireFeature) {
		logger.Debug("dependency not requested", logging.String("feature", dep.RequireFeature))
		return stage.Skipped(fmt.Sprintf("%s not requested (--%s)", dep.Name, dep.RequireFeature))
	}
	if dep.SkipFeature != "" && set.Has(dep.SkipFeature) {
		logger.Info("dependency skipped by feature", logging.String("feature", dep.SkipFeature))
		return stage.Skipped(fmt.Sprintf("%s skipped by --%s", dep.Name, dep.SkipFeature))
	}
	force := dep.ForceFeature != "" && set.Has(dep.ForceFeature)
	target := filepath.Join(f.workDir, dep.Name)
	if fileutil.Exists(target) && !force {
		logger.Info("dependency already present", logging.String("path", target))
		return stage.Skipped(dep.Name + " already present")
	}

	if err := f.fetchLocked(ctx, dep, target, force); err != nil {
		logging.WarnWithContext(logger, "dependency fetch failed", "dependency_fetch_failed",
			logging.String("url", dep.URL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access or download the archive manually into "+f.workDir),
			logging.String(logging.FieldImpact, "packaging may fail without "+dep.Name),
		)
		return stage.Recoverable(err)
	}
	logger.Info("dependency ready", logging.String("path", target))
	return stage.Success("fetched " + dep.Name)
}

func (f *Fetcher) fetchLocked(ctx context.Context, dep manifest.Dependency, target string, force bool) error {
	if err := os.MkdirAll(f.lockDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "create lock dir", f.lockDir, err)
	}
	lock := flock.New(filepath.Join(f.lockDir, "."+dep.Name+".lock"))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire lock for %s: %w", dep.Name, err)
	}
	if !ok {
		return fmt.Errorf("acquire lock for %s: lock busy", dep.Name)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// Another process may have finished while this one waited on the lock.
	if fileutil.Exists(target) {
		if !force {
			return nil
		}
		if err := os.RemoveAll(target); err != nil {
			return services.Wrap(services.ErrPermission, "", "remove previous", target, err)
		}
	}
	return f.fetch(ctx, dep, target)
}

func (f *Fetcher) fetch(ctx context.Context, dep manifest.Dependency, target string) error {
	if err := os.MkdirAll(f.workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "", "create work dir", f.workDir, err)
	}
	archivePath := filepath.Join(f.workDir, dep.Archive+dep.Format.Extension())
	defer os.Remove(archivePath)

	if err := f.downloader.Download(ctx, dep.URL, archivePath, dep.InsecureTLS); err != nil {
		return err
	}

	scratch, err := os.MkdirTemp(f.workDir, ".extract-"+dep.Name+"-")
	if err != nil {
		return services.Wrap(services.ErrExtract, "", "create scratch dir", f.workDir, err)
	}
	defer os.RemoveAll(scratch)

	unpacked := filepath.Join(scratch, "payload")
	if err := archive.Extract(ctx, dep.Format, archivePath, unpacked); err != nil {
		return err
	}

	root, err := resolveRoot(ctx, dep, unpacked, scratch)
	if err != nil {
		return err
	}
	if err := layout.Apply(root, dep.Relocations); err != nil {
		return err
	}
	// The canonical directory appears only once it is complete, so a failed
	// run never leaves a directory that would satisfy the existence check.
	if err := os.Rename(root, target); err != nil {
		return services.Wrap(services.ErrExtract, "", "install", target, err)
	}
	return nil
}

// resolveRoot finds the directory that becomes the canonical name.
func resolveRoot(ctx context.Context, dep manifest.Dependency, unpacked, scratch string) (string, error) {
	switch dep.Layout {
	case manifest.LayoutInto:
		return unpacked, nil
	case manifest.LayoutTopLevel:
		return topLevelDir(unpacked, dep.Archive)
	case manifest.LayoutNested:
		inner, err := innerArchive(unpacked, dep)
		if err != nil {
			return "", err
		}
		innerDest := filepath.Join(scratch, "inner")
		if err := archive.Extract(ctx, dep.InnerFormat, inner, innerDest); err != nil {
			return "", err
		}
		return topLevelDir(innerDest, dep.Archive)
	default:
		return "", services.Wrap(services.ErrConfiguration, "", "layout", fmt.Sprintf("unknown layout %q", dep.Layout), nil)
	}
}

// topLevelDir returns dir/name, or the single directory in dir when the
// archive's top directory is named differently.
func topLevelDir(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", services.Wrap(services.ErrExtract, "", "read payload", dir, err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return "", services.Wrap(services.ErrExtract, "", "locate top-level directory", name, errors.New("archive has no single top-level directory"))
}

func innerArchive(dir string, dep manifest.Dependency) (string, error) {
	candidate := filepath.Join(dir, dep.Archive+dep.InnerFormat.Extension())
	if fileutil.Exists(candidate) {
		return candidate, nil
	}
	var found []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && archive.DetectFormat(d.Name()) == dep.InnerFormat {
			found = append(found, path)
		}
		return nil
	})
	if len(found) == 1 {
		return found[0], nil
	}
	return "", services.Wrap(services.ErrExtract, "", "locate inner archive", dep.Archive,
		fmt.Errorf("found %d %s archives", len(found), dep.InnerFormat))
}
