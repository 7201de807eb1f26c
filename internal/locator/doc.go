// Package locator finds the freshly built app executable among the places
// cargo may have written it and stages a per-architecture copy for packaging.
//
// Candidates are filtered by executable header rather than by path, so a
// stale x86_64 build in target/release is never staged as the arm64 binary.
package locator
