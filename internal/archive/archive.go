package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"prebuild/internal/manifest"
	"prebuild/internal/services"
)

// ErrUnsafePath is returned when an archive entry would land outside the destination.
var ErrUnsafePath = errors.New("archive entry escapes destination")

// DetectFormat infers the container format from a file name.
func DetectFormat(name string) manifest.Format {
	lower := strings.ToLower(name)
	if i := strings.IndexByte(lower, '?'); i >= 0 {
		lower = lower[:i]
	}
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return manifest.FormatZip
	case strings.HasSuffix(lower, ".7z"):
		return manifest.Format7z
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return manifest.FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return manifest.FormatTarXz
	default:
		return manifest.FormatRaw
	}
}

// Extract unpacks src into dest according to format. dest is created when
// missing. Entries that would escape dest are rejected before anything is
// written for them.
func Extract(ctx context.Context, format manifest.Format, src, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return services.Wrap(services.ErrExtract, "", "create destination", dest, err)
	}
	var err error
	switch format {
	case manifest.FormatZip:
		err = extractZip(ctx, src, dest)
	case manifest.Format7z:
		err = extract7z(ctx, src, dest)
	case manifest.FormatTarGz:
		err = extractTarGz(ctx, src, dest)
	case manifest.FormatTarXz:
		err = extractTarXz(ctx, src, dest)
	case manifest.FormatRaw:
		return services.Wrap(services.ErrExtract, "", "extract", fmt.Sprintf("%s is not an archive", src), nil)
	default:
		return services.Wrap(services.ErrExtract, "", "extract", fmt.Sprintf("unknown format %q", format), nil)
	}
	if err != nil {
		return services.Wrap(services.ErrExtract, "", "extract "+string(format), src, err)
	}
	return nil
}
