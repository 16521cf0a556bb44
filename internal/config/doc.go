// Package config loads and validates YAML runner configuration.
//
// Files may reference environment variables with ${VAR} syntax; they are
// expanded before parsing. Validation fails fast on the first missing or
// invalid required value.
package config
