package archive

import (
	"context"

	"github.com/bodgit/sevenzip"
)

func extract7z(ctx context.Context, src, dest string) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := openSink(dest)
	if err != nil {
		return err
	}
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			_ = out.root.Close()
			return err
		}
		if err := extract7zEntry(out, f); err != nil {
			_ = out.root.Close()
			return err
		}
	}
	return out.close()
}

func extract7zEntry(out *sink, f *sevenzip.File) error {
	rel, err := out.entry(f.Name)
	if err != nil {
		return err
	}
	info := f.FileInfo()
	if info.IsDir() {
		return out.mkdir(rel)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return out.write(rel, rc, info.Mode())
}
