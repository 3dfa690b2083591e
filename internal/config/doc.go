// ABOUTME: Package config loads and validates lumen-gateway configuration.
// ABOUTME: YAML file with ${ENV} expansion, LUMEN_* env overrides, parsed durations.

// Package config provides configuration loading for the gateway. Values
// come from a YAML file whose ${VAR} references are expanded from the
// environment; individual fields may then be overridden by LUMEN_*
// environment variables. All timeout knobs for worker supervision and
// correlation live here so tests and deployments can tune them.
package config
