package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"prebuild/internal/platform"
	"prebuild/internal/services"
)

// Validate checks every platform table for usable entries.
func (m *Manifest) Validate() error {
	var errs []error
	for _, id := range []platform.ID{platform.Windows, platform.MacOS, platform.Linux} {
		if err := m.platforms[id].validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return services.Wrap(services.ErrConfiguration, "", "validate manifest", "", errors.Join(errs...))
	}
	return nil
}

func (p Platform) validate() error {
	var errs []error
	seen := map[string]struct{}{}
	for i, dep := range p.Dependencies {
		if err := dep.validate(); err != nil {
			errs = append(errs, fmt.Errorf("dependencies[%d]: %w", i, err))
			continue
		}
		if _, dup := seen[dep.Name]; dup {
			errs = append(errs, fmt.Errorf("dependencies[%d]: duplicate name %q", i, dep.Name))
		}
		seen[dep.Name] = struct{}{}
	}
	for key := range p.Binary {
		if _, err := platform.ParseArch(key); err != nil {
			errs = append(errs, fmt.Errorf("binary: %w", err))
		}
	}
	for i, c := range p.StagedCopies {
		if strings.TrimSpace(c.Name) == "" || !isRelative(c.Source) {
			errs = append(errs, fmt.Errorf("staged_copies[%d]: name and relative source required", i))
		}
	}
	if p.Sidecar.URL != "" {
		if err := validFormat(p.Sidecar.Format); err != nil {
			errs = append(errs, fmt.Errorf("sidecar: %w", err))
		}
		if strings.TrimSpace(p.Sidecar.Name) == "" {
			errs = append(errs, errors.New("sidecar: name required"))
		}
		if p.Sidecar.Format != FormatRaw && !isRelative(p.Sidecar.Binary) {
			errs = append(errs, errors.New("sidecar: archive formats need a relative binary path"))
		}
	}
	return errors.Join(errs...)
}

func (d Dependency) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("name required")
	}
	if strings.ContainsAny(d.Name, `/\`) {
		return fmt.Errorf("%s: name must be a single path element", d.Name)
	}
	if !strings.HasPrefix(d.URL, "https://") && !strings.HasPrefix(d.URL, "http://") {
		return fmt.Errorf("%s: url must be http(s)", d.Name)
	}
	if strings.TrimSpace(d.Archive) == "" {
		return fmt.Errorf("%s: archive required", d.Name)
	}
	if err := validFormat(d.Format); err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	if d.Format == FormatRaw {
		return fmt.Errorf("%s: dependencies must be archives", d.Name)
	}
	switch d.Layout {
	case LayoutTopLevel, LayoutInto:
	case LayoutNested:
		if err := validFormat(d.InnerFormat); err != nil || d.InnerFormat == FormatRaw {
			return fmt.Errorf("%s: nested layout needs an archive inner_format", d.Name)
		}
	default:
		return fmt.Errorf("%s: unknown layout %q", d.Name, d.Layout)
	}
	for i, rel := range d.Relocations {
		switch rel.Op {
		case OpCopy, OpMove, OpMoveContents:
		default:
			return fmt.Errorf("%s: relocations[%d]: unknown op %q", d.Name, i, rel.Op)
		}
		if !isRelative(rel.Source) || !isRelative(rel.Dest) {
			return fmt.Errorf("%s: relocations[%d]: paths must stay inside the dependency", d.Name, i)
		}
	}
	return nil
}

func validFormat(f Format) error {
	switch f {
	case FormatZip, Format7z, FormatTarGz, FormatTarXz, FormatRaw:
		return nil
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func isRelative(p string) bool {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "/") || strings.HasPrefix(p, `\`) {
		return false
	}
	clean := filepath.ToSlash(filepath.Clean(p))
	return clean != ".." && !strings.HasPrefix(clean, "../")
}
