// Package config loads, normalizes, and validates prebuild configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment variables the
// packaging pipeline communicates through: SCREENPIPE_APP_DEV, GITHUB_ENV and
// SKIP_SCREENPIPE_SETUP. Derived locations such as the staging directory
// (<project_dir>/src-tauri) and the run ledger are filled in during
// normalization so downstream packages receive absolute paths.
package config
