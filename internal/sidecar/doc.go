// Package sidecar stages the helper executables bundled with the app: the
// Ollama model runtime and the Deno JavaScript runtime.
//
// Staged files are named <tool>-<target triple> as the packaging tool
// expects for external binaries. On macOS every tool is staged once per
// architecture.
package sidecar
