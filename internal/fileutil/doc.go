// Package fileutil holds the file and directory copy helpers shared by the
// staging, fetch, and sidecar stages.
package fileutil
