// Package provision runs the pre-build stages in order for one platform.
//
// Every stage returns a stage.Outcome. Recoverable outcomes are logged and
// the run continues; the first fatal outcome stops the run. Each outcome is
// also recorded in the run ledger when one is attached. Stage order:
//
//	packages, binary, dylib (macOS), deps, ffmpeg-bin (macOS), deno, sidecar, handoff
//
// The sidecars run before handoff so a chained dev or build run finds them
// staged.
package provision
