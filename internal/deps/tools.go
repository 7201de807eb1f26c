package deps

import (
	"prebuild/internal/config"
	"prebuild/internal/platform"
)

// ForPlatform lists the host tools the provisioning stages invoke on id.
func ForPlatform(id platform.ID, tools config.Tools) []Requirement {
	var reqs []Requirement
	switch id {
	case platform.Linux:
		reqs = append(reqs,
			Requirement{Name: "sudo", Command: "sudo", Description: "Runs apt-get with root privileges"},
			Requirement{Name: "apt-get", Command: "apt-get", Description: "Installs native build packages"},
			Requirement{Name: "sh", Command: "sh", Description: "Runs the Deno installer script"},
		)
	case platform.MacOS:
		reqs = append(reqs,
			Requirement{Name: "install_name_tool", Command: "install_name_tool", Description: "Rewrites vision library load paths"},
			Requirement{Name: "sh", Command: "sh", Description: "Runs the Deno installer script"},
		)
	case platform.Windows:
		reqs = append(reqs,
			Requirement{Name: "vcpkg", Command: tools.Vcpkg, Description: "Installs OpenCL and ONNX Runtime packages"},
			Requirement{Name: "choco", Command: "choco", Description: "Installs Deno", Optional: true},
			Requirement{Name: "powershell", Command: "powershell", Description: "Performs elevated copies", Optional: true},
		)
	}
	bun := tools.Bun
	if bun == "" {
		bun = "bun"
	}
	reqs = append(reqs,
		Requirement{Name: "bun", Command: bun, Description: "Runs chained dev and build packaging", Optional: true},
		Requirement{Name: "deno", Command: "deno", Description: "Bundled runtime; installed on demand", Optional: true},
	)
	return reqs
}
