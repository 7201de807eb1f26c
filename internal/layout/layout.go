package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"prebuild/internal/fileutil"
	"prebuild/internal/manifest"
	"prebuild/internal/services"
)

// Apply runs each relocation in order against root. Paths in a relocation are
// relative to root. The first failing relocation stops the sequence.
func Apply(root string, rels []manifest.Relocation) error {
	for _, rel := range rels {
		if err := applyOne(root, rel); err != nil {
			return services.Wrap(services.ErrExtract, "", "relocate "+string(rel.Op),
				fmt.Sprintf("%s -> %s", rel.Source, rel.Dest), err)
		}
	}
	return nil
}

func applyOne(root string, rel manifest.Relocation) error {
	src := filepath.Join(root, filepath.FromSlash(rel.Source))
	dst := filepath.Join(root, filepath.FromSlash(rel.Dest))

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	switch rel.Op {
	case manifest.OpCopy:
		if info.IsDir() {
			return fileutil.CopyDir(src, dst)
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return fileutil.CopyFileMode(src, dst, info.Mode().Perm())
	case manifest.OpMove:
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.RemoveAll(dst); err != nil {
			return err
		}
		return os.Rename(src, dst)
	case manifest.OpMoveContents:
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", rel.Source)
		}
		return fileutil.MoveContents(src, dst)
	default:
		return fmt.Errorf("unknown op %q", rel.Op)
	}
}
