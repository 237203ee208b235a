// Package config provides configuration loading and validation for the
// interview pipeline service. It handles YAML-based configuration with
// per-section validation and duration accessor helpers.
package config
