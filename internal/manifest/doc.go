// Package manifest holds the static provisioning table: which archives each
// platform downloads, how they are laid out after extraction, which OS
// packages are installed, where the app binary may have been built, and how
// the Deno and Ollama sidecars are obtained.
//
// The table is an embedded TOML document decoded once. For returns copies, so
// stages receive the table explicitly and cannot mutate shared state. A
// manifest_path in the configuration replaces the embedded document.
package manifest
