package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment overrides. They win over file values so a .env file can point
// a packaged config at a local converter build.
const (
	EnvX2TBinary = "DOCSHELL_X2T_BINARY"
	EnvX2TWasm   = "DOCSHELL_X2T_WASM"
	EnvAPIBind   = "DOCSHELL_API_BIND"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeConverter(); err != nil {
		return err
	}
	c.normalizeEditor()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv(EnvAPIBind); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = value
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeConverter() error {
	var err error
	if value, ok := os.LookupEnv(EnvX2TBinary); ok && strings.TrimSpace(value) != "" {
		c.Converter.Binary = value
	}
	if value, ok := os.LookupEnv(EnvX2TWasm); ok && strings.TrimSpace(value) != "" {
		c.Converter.WasmPath = value
		if strings.TrimSpace(c.Converter.Backend) == "" || c.Converter.Backend == defaultBackend {
			c.Converter.Backend = BackendWasm
		}
	}

	c.Converter.Backend = strings.ToLower(strings.TrimSpace(c.Converter.Backend))
	if c.Converter.Backend == "" {
		c.Converter.Backend = defaultBackend
	}
	c.Converter.Binary = strings.TrimSpace(c.Converter.Binary)
	if c.Converter.Binary == "" {
		c.Converter.Binary = defaultBinary
	}
	if strings.ContainsAny(c.Converter.Binary, `/\`) || strings.HasPrefix(c.Converter.Binary, "~") {
		if c.Converter.Binary, err = expandPath(c.Converter.Binary); err != nil {
			return fmt.Errorf("converter.binary: %w", err)
		}
	}
	if c.Converter.WasmPath, err = expandPath(strings.TrimSpace(c.Converter.WasmPath)); err != nil {
		return fmt.Errorf("converter.wasm_path: %w", err)
	}
	if strings.TrimSpace(c.Converter.CacheDir) == "" {
		c.Converter.CacheDir = defaultCacheDir()
	}
	if c.Converter.CacheDir, err = expandPath(c.Converter.CacheDir); err != nil {
		return fmt.Errorf("converter.cache_dir: %w", err)
	}
	if c.Converter.FontsDir, err = expandPath(strings.TrimSpace(c.Converter.FontsDir)); err != nil {
		return fmt.Errorf("converter.fonts_dir: %w", err)
	}
	if c.Converter.ThemesDir, err = expandPath(strings.TrimSpace(c.Converter.ThemesDir)); err != nil {
		return fmt.Errorf("converter.themes_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEditor() {
	c.Editor.UserID = strings.TrimSpace(c.Editor.UserID)
	if c.Editor.UserID == "" {
		c.Editor.UserID = defaultUserID
	}
	c.Editor.UserName = strings.TrimSpace(c.Editor.UserName)
	if c.Editor.UserName == "" {
		c.Editor.UserName = defaultUserName
	}
	c.Editor.BuildVersion = strings.TrimSpace(c.Editor.BuildVersion)
	if c.Editor.BuildVersion == "" {
		c.Editor.BuildVersion = defaultBuildVersion
	}
	if c.Editor.BuildNumber <= 0 {
		c.Editor.BuildNumber = defaultBuildNumber
	}
	origins := make([]string, 0, len(c.Editor.AllowOrigins))
	for _, origin := range c.Editor.AllowOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Editor.AllowOrigins = origins
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
