// Package main hosts the prebuild CLI entrypoint and command graph.
//
// The bare command runs every provisioning stage for the host platform. Its
// arguments are passed through untouched as feature toggles, so
// `prebuild --build --openblas` both selects the chained packaging action and
// enables the OpenBLAS download. Subcommands report state without changing it:
// status (tools and staging artifacts), history (the run ledger), platform
// (detected targets), and config (sample scaffolding and validation).
//
// Keep this package lean: behaviour lives in internal/provision and the stage
// packages; commands here only resolve configuration and render results.
package main
