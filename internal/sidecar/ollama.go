package sidecar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"prebuild/internal/archive"
	"prebuild/internal/fileutil"
	"prebuild/internal/logging"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
	"prebuild/internal/services"
	"prebuild/internal/stage"
)

// Ollama installs the local model runtime shipped next to the app.
type Ollama struct {
	workDir    string
	downloader Downloader
	logger     *slog.Logger
}

// NewOllama constructs an installer staging into workDir.
func NewOllama(workDir string, downloader Downloader, logger *slog.Logger) *Ollama {
	return &Ollama{workDir: workDir, downloader: downloader, logger: logging.NewComponentLogger(logger, "sidecar")}
}

// Ensure installs the sidecar unless every per-architecture file is present.
// Any failure is fatal: the package cannot ship without it.
func (o *Ollama) Ensure(ctx context.Context, id platform.ID, sc manifest.Sidecar) stage.Outcome {
	ctx = services.WithArtifact(ctx, sc.Name)
	logger := logging.WithContext(ctx, o.logger)
	installed, err := o.Install(ctx, id, sc)
	if err != nil {
		logging.ErrorWithContext(logger, "sidecar installation failed", "sidecar_install_failed",
			logging.String("version", sc.Version),
			logging.String("url", sc.URL),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and free space in "+o.workDir),
		)
		return stage.Fatal(err)
	}
	if !installed {
		logger.Info("sidecar already present")
		return stage.Skipped(sc.Name + " already present")
	}
	logger.Info("sidecar installed", logging.String("version", sc.Version))
	return stage.Success(fmt.Sprintf("installed %s %s", sc.Name, sc.Version))
}

// Install performs the installation and reports whether anything was done.
func (o *Ollama) Install(ctx context.Context, id platform.ID, sc manifest.Sidecar) (bool, error) {
	if sc.URL == "" {
		return false, services.Wrap(services.ErrConfiguration, "", "sidecar", "no sidecar configured for "+id.String(), nil)
	}
	dests := targets(o.workDir, sc.Name, id)
	if allExist(dests) {
		return false, nil
	}
	if err := os.MkdirAll(o.workDir, 0o755); err != nil {
		return false, services.Wrap(services.ErrConfiguration, "", "create work dir", o.workDir, err)
	}

	download := filepath.Join(o.workDir, downloadName(sc.URL))
	o.logger.Info("downloading sidecar", logging.String("url", sc.URL))
	if err := o.downloader.Download(ctx, sc.URL, download, false); err != nil {
		return false, err
	}

	if sc.Format == manifest.FormatRaw {
		// The download is the executable itself; stage a copy per architecture
		// and keep the download as the cache for the next architecture.
		for _, dst := range dests {
			if err := fileutil.CopyFileMode(download, dst, fileutil.ExecutableMode); err != nil {
				return false, fmt.Errorf("stage sidecar %s: %w", dst, err)
			}
			if err := fileutil.MakeExecutable(dst); err != nil {
				return false, services.Wrap(services.ErrPermission, "", "chmod", dst, err)
			}
		}
		return true, nil
	}

	if err := archive.Extract(ctx, sc.Format, download, o.workDir); err != nil {
		return false, err
	}
	inner := filepath.Join(o.workDir, filepath.FromSlash(sc.Binary))
	if err := os.Rename(inner, dests[0]); err != nil {
		return false, services.Wrap(services.ErrExtract, "", "rename sidecar", inner, err)
	}
	if err := fileutil.MakeExecutable(dests[0]); err != nil {
		return false, services.Wrap(services.ErrPermission, "", "chmod", dests[0], err)
	}
	if err := os.Remove(download); err != nil {
		logging.WarnWithContext(o.logger, "could not delete sidecar archive", "sidecar_cleanup_failed",
			logging.String("path", download),
			logging.Error(err),
			logging.String(logging.FieldImpact, "archive remains in the staging directory"),
		)
	}
	o.prune(sc)
	return true, nil
}

// prune removes superseded libraries shipped in the payload. Each failure is
// reported and skipped.
func (o *Ollama) prune(sc manifest.Sidecar) {
	if sc.PruneDir == "" {
		return
	}
	dir := filepath.Join(o.workDir, filepath.FromSlash(sc.PruneDir))
	for _, name := range sc.Prune {
		target := filepath.Join(dir, name)
		if err := os.Remove(target); err != nil {
			logging.WarnWithContext(o.logger, "failed to remove old library", "sidecar_prune_failed",
				logging.String("library", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "package is larger than necessary"),
			)
			continue
		}
		o.logger.Info("removed old library", logging.String("library", name))
	}
}

func downloadName(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(raw)
}
