// Package platform detects the host operating system and names the target
// architectures, Rust triples, and staged file names derived from it.
//
// Every stage receives an ID and dispatches on it with a switch. The privilege
// adapter (IsElevated, ElevatedCopy) is the only host-specific code here and is
// split by build tag: Windows raises a UAC prompt through PowerShell, other
// hosts retry the copy directly.
package platform
