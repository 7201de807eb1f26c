package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"prebuild/internal/config"
	"prebuild/internal/platform"
)

// Variable names consumed by the native build scripts.
const (
	EnvFFmpegDir     = "FFMPEG_DIR"
	EnvOpenBLASPath  = "OPENBLAS_PATH"
	EnvCLBlastDir    = "CLBlast_DIR"
	EnvLibClangPath  = "LIBCLANG_PATH"
	EnvMetalEmbedLib = "WHISPER_METAL_EMBED_LIBRARY"
	EnvPath          = "PATH"
)

// Var is one environment assignment.
type Var struct {
	Key   string
	Value string
}

func (v Var) String() string { return v.Key + "=" + v.Value }

// Exports are the paths handed to the native build.
type Exports struct {
	FFmpeg   string
	OpenBLAS string
	CLBlast  string
	LibClang string
	CMake    string
}

// NewExports derives export paths from the staging directory and the
// configured Windows toolchain locations.
func NewExports(workDir string, tools config.Tools) Exports {
	return Exports{
		FFmpeg:   filepath.Join(workDir, "ffmpeg"),
		OpenBLAS: filepath.Join(workDir, "openblas"),
		CLBlast:  filepath.Join(workDir, "clblast", "lib", "cmake", "CLBlast"),
		LibClang: tools.LibClangDir,
		CMake:    tools.CMakeDir,
	}
}

// CIVars lists the assignments appended to the CI environment file.
func CIVars(id platform.ID, ex Exports) []Var {
	switch id {
	case platform.Windows:
		return []Var{{EnvFFmpegDir, ex.FFmpeg}, {EnvOpenBLASPath, ex.OpenBLAS}}
	case platform.MacOS:
		return []Var{{EnvFFmpegDir, ex.FFmpeg}, {EnvMetalEmbedLib, "ON"}}
	default:
		return nil
	}
}

// BuildVars lists the assignments set for a chained packaging run. path is
// the current PATH; Windows appends the CMake directory to it.
func BuildVars(id platform.ID, ex Exports, path string) []Var {
	vars := []Var{{EnvFFmpegDir, ex.FFmpeg}}
	switch id {
	case platform.Windows:
		vars = append(vars,
			Var{EnvOpenBLASPath, ex.OpenBLAS},
			Var{EnvCLBlastDir, ex.CLBlast},
			Var{EnvLibClangPath, ex.LibClang},
			Var{EnvPath, path + ";" + ex.CMake},
		)
	case platform.MacOS:
		vars = append(vars, Var{EnvMetalEmbedLib, "ON"})
	}
	return vars
}

// WriteCIEnv appends one KEY=VALUE line per variable to path.
func WriteCIEnv(path string, vars []Var) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	var b strings.Builder
	for _, v := range vars {
		if strings.ContainsAny(v.Value, "\r\n") {
			_ = f.Close()
			return fmt.Errorf("value for %s contains a newline", v.Key)
		}
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
