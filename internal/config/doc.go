// Package config loads and validates backbeat configuration.
//
// Configuration comes from a TOML file with repository defaults applied
// first, then credential overrides from the environment (optionally loaded
// from a .env file). Paths support ~ expansion and default to XDG locations.
package config
