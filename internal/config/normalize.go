package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeEnvironment()
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = filepath.Join(c.Paths.ProjectDir, defaultWorkSubdir)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = filepath.Join(c.Paths.CacheDir, defaultLedgerName)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.CacheDir, defaultLogSubdir)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ManifestPath, err = expandPath(strings.TrimSpace(c.Paths.ManifestPath)); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() {
	if c.Download.Attempts <= 0 {
		c.Download.Attempts = defaultAttempts
	}
	if c.Download.WaitSeconds < 0 {
		c.Download.WaitSeconds = 0
	}
	if c.Download.TimeoutSeconds < 0 {
		c.Download.TimeoutSeconds = 0
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
}

// normalizeEnvironment lets the calling environment override file values, since
// CI runners and the packaging tool communicate through these variables.
func (c *Config) normalizeEnvironment() {
	if value, ok := os.LookupEnv(envDevMode); ok {
		c.Environment.DevMode = strings.TrimSpace(value) == "true"
	}
	if value, ok := os.LookupEnv(envCIEnvFile); ok && strings.TrimSpace(value) != "" {
		c.Environment.CIEnvFile = strings.TrimSpace(value)
	}
	c.Environment.CIEnvFile = strings.TrimSpace(c.Environment.CIEnvFile)
	if value, ok := os.LookupEnv(envSkipSetup); ok && value != "" {
		c.Environment.SkipBinarySetup = true
	}
}

func (c *Config) normalizeTools() {
	c.Tools.Vcpkg = strings.TrimSpace(c.Tools.Vcpkg)
	if c.Tools.Vcpkg == "" {
		c.Tools.Vcpkg = defaultVcpkg
	}
	c.Tools.LibClangDir = strings.TrimSpace(c.Tools.LibClangDir)
	if c.Tools.LibClangDir == "" {
		c.Tools.LibClangDir = defaultLibClangDir
	}
	c.Tools.CMakeDir = strings.TrimSpace(c.Tools.CMakeDir)
	if c.Tools.CMakeDir == "" {
		c.Tools.CMakeDir = defaultCMakeDir
	}
	c.Tools.Bun = strings.TrimSpace(c.Tools.Bun)
	if c.Tools.Bun == "" {
		c.Tools.Bun = defaultBun
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
