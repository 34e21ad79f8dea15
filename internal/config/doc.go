// Package config loads runtime settings from .env files and environment variables.
//
// Values are resolved in order: built-in defaults, the first .env file found in the
// search path, then the process environment. Command-line flags are applied on top
// by the cli package.
package config
