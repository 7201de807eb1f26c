package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupportedPlatform is returned for host operating systems prebuild cannot provision.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ID identifies one supported host operating system.
type ID int

const (
	Unknown ID = iota
	Windows
	MacOS
	Linux
)

func (id ID) String() string {
	switch id {
	case Windows:
		return "windows"
	case MacOS:
		return "macos"
	case Linux:
		return "linux"
	default:
		return "unknown"
	}
}

// Detect maps a Go GOOS value to a platform ID.
func Detect(goos string) (ID, error) {
	switch goos {
	case "windows":
		return Windows, nil
	case "darwin":
		return MacOS, nil
	case "linux":
		return Linux, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, goos)
	}
}

// Current detects the host platform.
func Current() (ID, error) {
	return Detect(runtime.GOOS)
}

// ParseID accepts the String form of an ID (case-insensitive); "darwin" is an alias of macos.
func ParseID(value string) (ID, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "windows":
		return Windows, nil
	case "macos", "darwin":
		return MacOS, nil
	case "linux":
		return Linux, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, value)
	}
}

// Arch identifies a target CPU architecture.
type Arch int

const (
	ArchUnknown Arch = iota
	ARM64
	X86_64
)

func (a Arch) String() string {
	switch a {
	case ARM64:
		return "arm64"
	case X86_64:
		return "x86_64"
	default:
		return "unknown"
	}
}

// ParseArch accepts arm64/aarch64 and x86_64/amd64.
func ParseArch(value string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "arm64", "aarch64":
		return ARM64, nil
	case "x86_64", "amd64", "x64":
		return X86_64, nil
	default:
		return ArchUnknown, fmt.Errorf("unknown architecture %q", value)
	}
}

// TargetArchs lists the architectures packaged for a platform. macOS ships
// both Apple Silicon and Intel builds; the others ship x86_64 only.
func TargetArchs(id ID) []Arch {
	if id == MacOS {
		return []Arch{ARM64, X86_64}
	}
	return []Arch{X86_64}
}

// Triple returns the Rust target triple used in sidecar file names.
func Triple(id ID, arch Arch) string {
	cpu := "x86_64"
	if arch == ARM64 {
		cpu = "aarch64"
	}
	switch id {
	case MacOS:
		return cpu + "-apple-darwin"
	case Windows:
		return cpu + "-pc-windows-msvc"
	case Linux:
		return cpu + "-unknown-linux-gnu"
	default:
		return cpu + "-unknown"
	}
}

// ExecutableName appends .exe on Windows.
func ExecutableName(base string, id ID) string {
	if id == Windows && !strings.HasSuffix(strings.ToLower(base), ".exe") {
		return base + ".exe"
	}
	return base
}

// SidecarName returns the packaging tool's name for a staged executable:
// <base>-<triple>, plus .exe on Windows.
func SidecarName(base string, id ID, arch Arch) string {
	return ExecutableName(base+"-"+Triple(id, arch), id)
}
