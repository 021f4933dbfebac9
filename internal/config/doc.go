// Package config loads the lift control container configuration.
//
// Values come from built-in defaults, then config/default.yaml, then the file
// named by LCC_CONFIG, then LCC_* environment variables, and are validated last.
package config
