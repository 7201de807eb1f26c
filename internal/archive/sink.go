package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// sink writes archive entries under dest. All writes go through an os.Root,
// so a path that resolves outside dest through already extracted symlinks is
// refused by the filesystem layer rather than by name inspection alone.
type sink struct {
	base string
	root *os.Root
}

func openSink(dest string) (*sink, error) {
	base, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(base)
	if err != nil {
		return nil, err
	}
	return &sink{base: base, root: root}, nil
}

// close verifies every extracted symlink still resolves under dest and
// releases the root.
func (s *sink) close() error {
	err := s.verifyLinks()
	if cerr := s.root.Close(); err == nil {
		err = cerr
	}
	return err
}

// entry validates an archive entry name and returns it relative to dest.
func (s *sink) entry(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	rel := filepath.Clean(filepath.FromSlash(name))
	if !within(".", rel) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if _, err := s.realParent(rel); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnsafePath, name, err)
	}
	return rel, nil
}

func (s *sink) mkdir(rel string) error {
	if rel == "." {
		return nil
	}
	return s.root.MkdirAll(rel, 0o755)
}

func (s *sink) write(rel string, r io.Reader, mode os.FileMode) error {
	if err := s.mkdir(filepath.Dir(rel)); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}
	_ = s.root.Remove(rel)
	out, err := s.root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// symlink creates rel pointing at link. The link is resolved against the
// real location of its parent directory and must stay under dest.
func (s *sink) symlink(rel, link string) error {
	if filepath.IsAbs(link) || strings.HasPrefix(link, "/") || filepath.VolumeName(link) != "" {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, rel, link)
	}
	parent, err := s.realParent(rel)
	if err != nil {
		return fmt.Errorf("%w: symlink %s -> %s: %w", ErrUnsafePath, rel, link, err)
	}
	if !within(s.base, filepath.Join(parent, filepath.FromSlash(link))) {
		return fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, rel, link)
	}
	if err := s.mkdir(filepath.Dir(rel)); err != nil {
		return err
	}
	_ = s.root.Remove(rel)
	return s.root.Symlink(link, rel)
}

func (s *sink) hardlink(rel, sourceName string) error {
	source, err := s.entry(sourceName)
	if err != nil {
		return err
	}
	if err := s.mkdir(filepath.Dir(rel)); err != nil {
		return err
	}
	_ = s.root.Remove(rel)
	return s.root.Link(source, rel)
}

// realParent resolves the deepest existing ancestor of rel's directory and
// fails when it lies outside dest. Missing components are created later as
// plain directories.
func (s *sink) realParent(rel string) (string, error) {
	dir := filepath.Join(s.base, filepath.Dir(rel))
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			if !within(s.base, resolved) {
				return "", fmt.Errorf("parent resolves to %s", resolved)
			}
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir || !within(s.base, parent) {
			return "", err
		}
		missing = append(missing, filepath.Base(dir))
		dir = parent
	}
}

// verifyLinks walks the extracted tree and rejects any symlink whose final
// target resolves outside dest. Dangling links are left for the caller.
func (s *sink) verifyLinks() error {
	return filepath.WalkDir(s.base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		resolved, err := filepath.EvalSymlinks(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if !within(s.base, resolved) {
			rel, _ := filepath.Rel(s.base, path)
			return fmt.Errorf("%w: symlink %s resolves to %s", ErrUnsafePath, rel, resolved)
		}
		return nil
	})
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
