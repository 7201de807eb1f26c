package locator

import (
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"errors"
	"fmt"
	"slices"

	"prebuild/internal/platform"
)

// ErrUnknownFormat is returned for files that are not Mach-O, ELF, or PE executables.
var ErrUnknownFormat = errors.New("not a recognised executable")

// Inspector reports which architectures an executable was built for.
type Inspector interface {
	Archs(path string) ([]platform.Arch, error)
}

// HeaderInspector reads executable headers. Universal Mach-O files report
// every architecture they contain.
type HeaderInspector struct{}

// Archs implements Inspector.
func (HeaderInspector) Archs(path string) ([]platform.Arch, error) {
	if fat, err := macho.OpenFat(path); err == nil {
		defer fat.Close()
		var archs []platform.Arch
		for _, arch := range fat.Arches {
			if a, ok := machoArch(arch.Cpu); ok && !slices.Contains(archs, a) {
				archs = append(archs, a)
			}
		}
		return archs, nil
	}
	if f, err := macho.Open(path); err == nil {
		defer f.Close()
		return single(machoArch(f.Cpu))
	}
	if f, err := elf.Open(path); err == nil {
		defer f.Close()
		switch f.Machine {
		case elf.EM_X86_64:
			return []platform.Arch{platform.X86_64}, nil
		case elf.EM_AARCH64:
			return []platform.Arch{platform.ARM64}, nil
		default:
			return nil, nil
		}
	}
	if f, err := pe.Open(path); err == nil {
		defer f.Close()
		switch f.Machine {
		case pe.IMAGE_FILE_MACHINE_AMD64:
			return []platform.Arch{platform.X86_64}, nil
		case pe.IMAGE_FILE_MACHINE_ARM64:
			return []platform.Arch{platform.ARM64}, nil
		default:
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

func machoArch(cpu macho.Cpu) (platform.Arch, bool) {
	switch cpu {
	case macho.CpuAmd64:
		return platform.X86_64, true
	case macho.CpuArm64:
		return platform.ARM64, true
	default:
		return platform.ArchUnknown, false
	}
}

func single(arch platform.Arch, ok bool) ([]platform.Arch, error) {
	if !ok {
		return nil, nil
	}
	return []platform.Arch{arch}, nil
}
