// Package logging builds the application slog logger.
//
// Two output formats are supported: a human-oriented console format for
// interactive use and JSON for anything that parses logs.
package logging
