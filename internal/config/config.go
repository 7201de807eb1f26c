package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories provisioning reads from and writes into.
type Paths struct {
	// ProjectDir is the desktop app root (the directory holding src-tauri).
	ProjectDir string `toml:"project_dir"`
	// WorkDir is the packaging staging directory. Defaults to <project_dir>/src-tauri.
	WorkDir      string `toml:"work_dir"`
	CacheDir     string `toml:"cache_dir"`
	LedgerPath   string `toml:"ledger_path"`
	LogDir       string `toml:"log_dir"`
	ManifestPath string `toml:"manifest_path"`
}

// Download contains the HTTP retry policy.
type Download struct {
	Attempts       int    `toml:"attempts"`
	WaitSeconds    int    `toml:"wait_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Environment holds values normally supplied by the calling environment.
type Environment struct {
	// DevMode selects executable-relative dylib paths. SCREENPIPE_APP_DEV=true.
	DevMode bool `toml:"dev_mode"`
	// CIEnvFile is the CI environment file to append exports to. GITHUB_ENV.
	CIEnvFile string `toml:"ci_env_file"`
	// SkipBinarySetup disables the app binary copy. SKIP_SCREENPIPE_SETUP.
	SkipBinarySetup bool `toml:"skip_binary_setup"`
}

// Tools contains locations of host tooling outside PATH.
type Tools struct {
	Vcpkg       string `toml:"vcpkg"`
	LibClangDir string `toml:"libclang_dir"`
	CMakeDir    string `toml:"cmake_dir"`
	Bun         string `toml:"bun"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for prebuild.
//
// Configuration sections by subsystem:
//   - Paths: project root, staging directory, cache and ledger locations
//   - Download: retry policy for artifact downloads
//   - Environment: dev mode, CI env file, and skip overrides
//   - Tools: Windows toolchain locations and the packaging tool launcher
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Download    Download    `toml:"download"`
	Environment Environment `toml:"environment"`
	Tools       Tools       `toml:"tools"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories provisioning writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryWait returns the fixed backoff between download attempts.
func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Download.WaitSeconds) * time.Second
}

// DownloadTimeout returns the per-attempt timeout. Zero means no timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "prebuild")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/prebuild"
	}
	return filepath.Join(home, ".cache", "prebuild")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
