// Package fetch downloads and unpacks the third-party libraries the desktop
// app links against.
//
// A Downloader retries transient failures on a fixed wait and renders a
// progress bar when stderr is a terminal. A Fetcher gates each manifest
// dependency on feature toggles and on the existence of its canonical
// directory, serializes concurrent runs with an advisory file lock, and
// installs the directory only after extraction and fix-ups succeed.
package fetch
