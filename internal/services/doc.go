// Package services defines shared utilities consumed by the provisioning stages
// and their external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and artifact names for
//     logging and the run ledger.
//   - Structured error markers plus the Wrap helper so failures carry the
//     operation, path, and cause in one message.
//   - The Runner abstraction that executes external tools with argument
//     arrays (never shell strings) and lets tests substitute a stub.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, subprocess invocation) stays uniform across stages.
package services
