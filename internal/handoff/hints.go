package handoff

import (
	"fmt"
	"io"
	"path/filepath"

	"prebuild/internal/platform"
)

// Hints prints the commands a developer runs next. startDir is where the tool
// was invoked from; projectDir is the desktop app root.
func Hints(w io.Writer, id platform.ID, ex Exports, startDir, projectDir string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands to build:")
	if rel, err := filepath.Rel(startDir, projectDir); err == nil && rel != "." && rel != "" {
		fmt.Fprintf(w, "cd %s\n", rel)
	}
	fmt.Fprintln(w, "bun install")
	if id == platform.Windows {
		fmt.Fprintf(w, "$env:%s = \"%s\"\n", EnvFFmpegDir, ex.FFmpeg)
		fmt.Fprintf(w, "$env:%s = \"%s\"\n", EnvOpenBLASPath, ex.OpenBLAS)
		fmt.Fprintf(w, "$env:%s = \"%s\"\n", EnvLibClangPath, ex.LibClang)
		fmt.Fprintf(w, "$env:PATH += \";%s\"\n", ex.CMake)
	}
	fmt.Fprintln(w, "bun tauri build")
}
