// Package dylib rewrites the vision library load paths embedded in the
// staged macOS app binaries so they resolve inside the app bundle.
package dylib
