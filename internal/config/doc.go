// Package config loads, normalizes, and validates vidsub configuration.
//
// Configuration lives in a TOML file (default ~/.config/vidsub/config.toml, or
// vidsub.toml in the working directory). Every field has a repository default
// so the tool runs without a file; CLI flags override individual values after
// loading. Path fields are expanded (~, relative paths) during normalization.
package config
