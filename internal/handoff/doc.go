// Package handoff passes the provisioned dependency paths to whatever runs
// the native build next: a CI environment file, a developer reading printed
// commands, or a chained bun/tauri invocation.
package handoff
