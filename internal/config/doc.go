// Package config loads runtime configuration of the buildconf process from
// multiple sources (YAML settings file, environment variables, CLI flags)
// with precedence: CLI flags > YAML settings > Environment variables >
// Defaults. It does not load the build configuration document itself; see
// package buildconfig for that.
package config
