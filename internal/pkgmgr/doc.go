// Package pkgmgr installs host packages: apt on Linux, vcpkg on Windows.
// macOS needs none.
package pkgmgr
