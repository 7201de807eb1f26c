package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"prebuild/internal/platform"
	"prebuild/internal/services"
)

//go:embed manifest.toml
var embedded []byte

// Format names an archive container.
type Format string

const (
	FormatZip   Format = "zip"
	Format7z    Format = "7z"
	FormatTarGz Format = "tar.gz"
	FormatTarXz Format = "tar.xz"
	FormatRaw   Format = "raw"
)

// Extension returns the file suffix used for downloads of this format.
func (f Format) Extension() string {
	switch f {
	case FormatRaw:
		return ""
	default:
		return "." + string(f)
	}
}

// Layout describes how an extracted archive maps onto the canonical name.
type Layout string

const (
	// LayoutTopLevel archives contain one top directory that is renamed to the canonical name.
	LayoutTopLevel Layout = "toplevel"
	// LayoutInto archives are extracted directly into a directory of the canonical name.
	LayoutInto Layout = "into"
	// LayoutNested archives wrap a second archive (inner_format) holding the top directory.
	LayoutNested Layout = "nested"
)

// Op is a post-extraction fix-up operation.
type Op string

const (
	OpCopy         Op = "copy"
	OpMove         Op = "move"
	OpMoveContents Op = "move-contents"
)

// Relocation is one declarative (source, dest, op) fix-up relative to the
// dependency's canonical directory.
type Relocation struct {
	Source string `toml:"source"`
	Dest   string `toml:"dest"`
	Op     Op     `toml:"op"`
}

// Dependency describes one downloadable third-party artifact.
type Dependency struct {
	// Name is the canonical directory in the staging dir; its presence gates the fetch.
	Name string `toml:"name"`
	// Archive is the download base name and the archive's top-level directory.
	Archive        string       `toml:"archive"`
	URL            string       `toml:"url"`
	Format         Format       `toml:"format"`
	Layout         Layout       `toml:"layout"`
	InnerFormat    Format       `toml:"inner_format"`
	InsecureTLS    bool         `toml:"insecure_tls"`
	RequireFeature string       `toml:"require_feature"`
	SkipFeature    string       `toml:"skip_feature"`
	ForceFeature   string       `toml:"force_feature"`
	Relocations    []Relocation `toml:"relocations"`
}

// StagedCopy copies a file from a fetched dependency to <name>-<triple> for
// every target architecture.
type StagedCopy struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
}

// Dylib lists the embedded library references rewritten on macOS. {arch} is
// replaced with the target architecture (arm64 or x86_64).
type Dylib struct {
	Libraries []string `toml:"libraries"`
}

// Deno describes how the Deno runtime is installed and where its binary lands.
type Deno struct {
	// Install is a package manager command run when deno is missing.
	Install []string `toml:"install"`
	// ScriptURL is an installer script downloaded and run with sh when Install is empty.
	ScriptURL string `toml:"script_url"`
	// Candidates are probed in order after installation; ~ expands to the home directory.
	Candidates []string `toml:"candidates"`
}

// Sidecar describes the Ollama runtime bundled next to the app.
type Sidecar struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	URL     string `toml:"url"`
	Format  Format `toml:"format"`
	// Binary is the executable's path inside the extracted payload.
	Binary string `toml:"binary"`
	// PruneDir holds superseded libraries removed after extraction.
	PruneDir string   `toml:"prune_dir"`
	Prune    []string `toml:"prune"`
}

// Platform is the provisioning table for one host platform.
type Platform struct {
	Dependencies  []Dependency        `toml:"dependencies"`
	AptPackages   []string            `toml:"apt_packages"`
	VcpkgPackages []string            `toml:"vcpkg_packages"`
	Binary        map[string][]string `toml:"binary"`
	StagedCopies  []StagedCopy        `toml:"staged_copies"`
	Dylib         Dylib               `toml:"dylib"`
	Deno          Deno                `toml:"deno"`
	Sidecar       Sidecar             `toml:"sidecar"`
}

// Candidates returns the ordered binary search paths for arch.
func (p Platform) Candidates(arch platform.Arch) []string {
	return slices.Clone(p.Binary[arch.String()])
}

// Dependency looks up a dependency by canonical name.
func (p Platform) Dependency(name string) (Dependency, bool) {
	for _, dep := range p.Dependencies {
		if dep.Name == name {
			return dep, true
		}
	}
	return Dependency{}, false
}

// Manifest is the immutable provisioning table for all platforms.
type Manifest struct {
	platforms map[platform.ID]Platform
}

type document struct {
	Windows Platform `toml:"windows"`
	MacOS   Platform `toml:"macos"`
	Linux   Platform `toml:"linux"`
}

var loadEmbedded = sync.OnceValues(func() (*Manifest, error) {
	return Parse(embedded)
})

// Load returns the manifest compiled into the binary. It is decoded once.
func Load() (*Manifest, error) {
	return loadEmbedded()
}

// LoadFile reads a manifest override from disk.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "read manifest", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Resolve returns the manifest at path when set, else the embedded one.
func Resolve(path string) (*Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return Load()
	}
	return LoadFile(path)
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var doc document
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "parse manifest", "", err)
	}
	m := &Manifest{platforms: map[platform.ID]Platform{
		platform.Windows: doc.Windows,
		platform.MacOS:   doc.MacOS,
		platform.Linux:   doc.Linux,
	}}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// For returns a copy of the table for id. Mutating the result does not affect
// the manifest.
func (m *Manifest) For(id platform.ID) (Platform, error) {
	p, ok := m.platforms[id]
	if !ok {
		return Platform{}, fmt.Errorf("%w: %s", platform.ErrUnsupportedPlatform, id)
	}
	return p.clone(), nil
}

func (p Platform) clone() Platform {
	out := p
	out.Dependencies = make([]Dependency, len(p.Dependencies))
	for i, dep := range p.Dependencies {
		dep.Relocations = slices.Clone(dep.Relocations)
		out.Dependencies[i] = dep
	}
	out.AptPackages = slices.Clone(p.AptPackages)
	out.VcpkgPackages = slices.Clone(p.VcpkgPackages)
	out.StagedCopies = slices.Clone(p.StagedCopies)
	out.Dylib.Libraries = slices.Clone(p.Dylib.Libraries)
	out.Deno.Install = slices.Clone(p.Deno.Install)
	out.Deno.Candidates = slices.Clone(p.Deno.Candidates)
	out.Sidecar.Prune = slices.Clone(p.Sidecar.Prune)
	if p.Binary != nil {
		out.Binary = make(map[string][]string, len(p.Binary))
		for k, v := range p.Binary {
			out.Binary[k] = slices.Clone(v)
		}
	}
	return out
}
