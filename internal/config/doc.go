// Package config loads the matchauth server configuration.
//
// Values come from environment variables, command-line flags and an optional JSON file,
// merged in that order (later sources win for non-zero fields). Defaults are applied to
// whatever is still unset and the result is validated before use.
package config
