// Package preflight provides readiness checks for the filesystem paths and
// host tools provisioning depends on.
//
// These checks run in two contexts:
//   - "prebuild run" calls RunAll before the first stage. A failed directory
//     check aborts the run before anything is downloaded.
//   - "prebuild status" uses CheckSystemDeps and ArtifactStatus to show which
//     tools are on PATH and which staging artifacts already exist.
package preflight
