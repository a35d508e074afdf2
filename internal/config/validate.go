package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q must be host:port: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateConverter() error {
	switch c.Converter.Backend {
	case BackendProcess:
		if strings.TrimSpace(c.Converter.Binary) == "" {
			return errors.New("converter.binary must be set when converter.backend is process")
		}
	case BackendWasm:
		if strings.TrimSpace(c.Converter.WasmPath) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("converter.wasm_path is required for the wasm backend. Set %s or edit %s (create with 'docshell config init')", EnvX2TWasm, defaultPath)
		}
	default:
		return fmt.Errorf("converter.backend must be %q or %q, got %q", BackendProcess, BackendWasm, c.Converter.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return fmt.Errorf("logging.retention_days must be zero or positive")
	}
	return nil
}
