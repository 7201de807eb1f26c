package locator

import (
	"os"
	"path/filepath"
	"slices"
	"time"

	"prebuild/internal/platform"
)

// Rejection records why a candidate path was not selected.
type Rejection struct {
	Path   string
	Reason string
}

// ReasonMissing marks a candidate path that does not exist.
const ReasonMissing = "missing"

// Selection is the outcome of choosing among candidate build outputs.
type Selection struct {
	Path     string
	ModTime  time.Time
	Found    bool
	Rejected []Rejection
}

// Select picks, among candidates that exist and were built for arch, the one
// modified most recently. Ties keep the earlier candidate. Relative candidates
// resolve against baseDir. No match is reported through Found, never as an error.
func Select(baseDir string, candidates []string, arch platform.Arch, inspector Inspector) Selection {
	if inspector == nil {
		inspector = HeaderInspector{}
	}
	var sel Selection
	for _, candidate := range candidates {
		path := resolve(baseDir, candidate)
		info, err := os.Stat(path)
		if err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Path: path, Reason: ReasonMissing})
			continue
		}
		if info.IsDir() {
			sel.Rejected = append(sel.Rejected, Rejection{Path: path, Reason: "is a directory"})
			continue
		}
		archs, err := inspector.Archs(path)
		if err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Path: path, Reason: err.Error()})
			continue
		}
		if !slices.Contains(archs, arch) {
			sel.Rejected = append(sel.Rejected, Rejection{Path: path, Reason: "built for another architecture"})
			continue
		}
		if !sel.Found || info.ModTime().After(sel.ModTime) {
			sel.Path = path
			sel.ModTime = info.ModTime()
			sel.Found = true
		}
	}
	return sel
}

// Missing counts rejected candidates that do not exist on disk.
func (s Selection) Missing() int {
	n := 0
	for _, r := range s.Rejected {
		if r.Reason == ReasonMissing {
			n++
		}
	}
	return n
}

func resolve(baseDir, candidate string) string {
	candidate = filepath.FromSlash(candidate)
	if filepath.IsAbs(candidate) || baseDir == "" {
		return filepath.Clean(candidate)
	}
	return filepath.Join(baseDir, candidate)
}
