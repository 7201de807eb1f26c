package preflight

import (
	"os"
	"path/filepath"

	"prebuild/internal/features"
	"prebuild/internal/locator"
	"prebuild/internal/manifest"
	"prebuild/internal/platform"
)

// Artifact kinds reported by ArtifactStatus.
const (
	KindDependency = "dependency"
	KindBinary     = "binary"
	KindCopy       = "copy"
	KindDeno       = "deno"
	KindSidecar    = "sidecar"
)

const denoBinary = "deno"

// Artifact is one expected output of a provisioning run.
type Artifact struct {
	Kind    string
	Name    string
	Path    string
	Present bool
	// Gated is set when a feature flag excludes the artifact from this run.
	Gated bool
}

// ArtifactStatus lists what a run on id would leave in workDir and whether
// each item is already there.
func ArtifactStatus(workDir string, id platform.ID, table manifest.Platform, set features.Set) []Artifact {
	var out []Artifact
	add := func(kind, name, path string, gated bool) {
		out = append(out, Artifact{Kind: kind, Name: name, Path: path, Present: exists(path), Gated: gated})
	}

	for _, dep := range table.Dependencies {
		gated := (dep.RequireFeature != "" && !set.Has(dep.RequireFeature)) ||
			(dep.SkipFeature != "" && set.Has(dep.SkipFeature))
		add(KindDependency, dep.Name, filepath.Join(workDir, dep.Name), gated)
	}
	for _, arch := range platform.TargetArchs(id) {
		add(KindBinary, locator.AppBinary+" "+arch.String(), locator.StagedPath(workDir, id, arch), false)
	}
	if id == platform.MacOS {
		for _, cp := range table.StagedCopies {
			for _, arch := range platform.TargetArchs(id) {
				add(KindCopy, cp.Name+" "+arch.String(), filepath.Join(workDir, platform.SidecarName(cp.Name, id, arch)), false)
			}
		}
	}
	for _, arch := range platform.TargetArchs(id) {
		add(KindDeno, denoBinary+" "+arch.String(), filepath.Join(workDir, platform.SidecarName(denoBinary, id, arch)), false)
	}
	if table.Sidecar.Name != "" {
		for _, arch := range platform.TargetArchs(id) {
			add(KindSidecar, table.Sidecar.Name+" "+arch.String(), filepath.Join(workDir, platform.SidecarName(table.Sidecar.Name, id, arch)), false)
		}
	}
	return out
}

// MissingArtifacts returns the ungated artifacts not yet present.
func MissingArtifacts(artifacts []Artifact) []Artifact {
	var out []Artifact
	for _, a := range artifacts {
		if !a.Present && !a.Gated {
			out = append(out, a)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
