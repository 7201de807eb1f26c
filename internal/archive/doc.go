// Package archive unpacks downloaded dependency containers: zip, tar.gz,
// tar.xz, and 7z.
//
// Extraction is done in-process instead of shelling out to 7-Zip, unzip or
// tar, so hosts need no extra tools. Every entry is checked against the
// destination directory before it is written; symlinks and hard links must
// resolve inside it.
package archive
