// Package config loads, normalizes, and validates docshell configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// DOCSHELL_X2T_BINARY. The Config type centralizes every knob the server and
// CLI need, so the converter backend, data directories and editor identity
// are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
