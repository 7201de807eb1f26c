// Package layout applies the declarative fix-ups listed for a dependency
// after it has been unpacked: copying headers next to import libraries,
// renaming libraries, and flattening architecture subdirectories.
package layout
