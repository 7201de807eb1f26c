package config

const (
	defaultConfigPath     = "~/.config/prebuild/config.toml"
	projectConfigName     = "prebuild.toml"
	defaultProjectDir     = "."
	defaultWorkSubdir     = "src-tauri"
	defaultLedgerName     = "ledger.db"
	defaultLogSubdir      = "logs"
	defaultAttempts       = 10
	defaultWaitSeconds    = 10
	defaultTimeoutSeconds = 0
	defaultUserAgent      = "prebuild/dev"
	defaultVcpkg          = `C:\vcpkg\vcpkg.exe`
	defaultLibClangDir    = `C:\Program Files\LLVM\bin`
	defaultCMakeDir       = `C:\Program Files\CMake\bin`
	defaultBun            = "bun"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"

	envDevMode   = "SCREENPIPE_APP_DEV"
	envCIEnvFile = "GITHUB_ENV"
	envSkipSetup = "SKIP_SCREENPIPE_SETUP"
)

// Default returns a Config populated with repository defaults. Derived paths
// (work dir, ledger, logs) are filled in by normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			CacheDir:   defaultCacheDir(),
		},
		Download: Download{
			Attempts:       defaultAttempts,
			WaitSeconds:    defaultWaitSeconds,
			TimeoutSeconds: defaultTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Tools: Tools{
			Vcpkg:       defaultVcpkg,
			LibClangDir: defaultLibClangDir,
			CMakeDir:    defaultCMakeDir,
			Bun:         defaultBun,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
