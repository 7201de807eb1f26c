// Package deps checks whether the host tools provisioning shells out to are
// on PATH.
package deps
