package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"docshell/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory, bound to
// an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Converter.CacheDir = filepath.Join(base, "cache")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStubConverter installs an x2t stand-in on PATH that copies the staged
// input to the requested output, and points the config at it.
func WithStubConverter() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte(`#!/bin/sh
from=$(sed -n 's:.*<m_sFileFrom>\(.*\)</m_sFileFrom>.*:\1:p' "$1")
to=$(sed -n 's:.*<m_sFileTo>\(.*\)</m_sFileTo>.*:\1:p' "$1")
cp "$from" "$to"
`)
		target := filepath.Join(binDir, "x2t-stub")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write converter stub: %v", err)
		}
		b.cfg.Converter.Backend = config.BackendProcess
		b.cfg.Converter.Binary = target
	}
}

// BaseDir returns the temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
