// Package config handles configuration loading, parsing, and validation
// from various sources (defaults, a YAML file, a .env file, environment
// variables and command-line flags). Sources later in that list take
// precedence over earlier ones.
package config
