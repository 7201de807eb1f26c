package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
)

func extractTarGz(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()
	return extractTar(ctx, gz, dest)
}

func extractTarXz(ctx context.Context, src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	xzr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("xz: %w", err)
	}
	return extractTar(ctx, xzr, dest)
}

func extractTar(ctx context.Context, r io.Reader, dest string) error {
	out, err := openSink(dest)
	if err != nil {
		return err
	}
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			_ = out.root.Close()
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out.close()
		}
		if err == nil {
			err = extractTarEntry(out, tr, hdr)
		}
		if err != nil {
			_ = out.root.Close()
			return err
		}
	}
}

func extractTarEntry(out *sink, tr *tar.Reader, hdr *tar.Header) error {
	rel, err := out.entry(hdr.Name)
	if err != nil {
		return err
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		return out.mkdir(rel)
	case tar.TypeReg:
		return out.write(rel, tr, os.FileMode(hdr.Mode))
	case tar.TypeSymlink:
		return out.symlink(rel, hdr.Linkname)
	case tar.TypeLink:
		return out.hardlink(rel, hdr.Linkname)
	default:
		// Device nodes and FIFOs have no place in a dependency payload.
		return nil
	}
}
