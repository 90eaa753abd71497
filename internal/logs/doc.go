// Package logs reads the daemon log file for `citetally logs`.
//
// It returns the last N lines with bounded memory, follows the file as the
// daemon appends to it and restarts from the beginning when the file shrinks.
// Lines can be narrowed by minimum level for both the console and JSON log
// formats. Callers supply contexts so follow-mode polling stops with the CLI.
package logs
