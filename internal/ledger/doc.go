// Package ledger keeps a local history of provisioning runs in SQLite: one
// row per stage outcome, keyed by run ID. The status and history commands
// read it; provisioning itself never depends on it.
package ledger
