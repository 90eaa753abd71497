// Package config loads, normalizes, and validates citetally configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SEMANTIC_SCHOLAR_API_KEY. The Config type centralizes the process-level
// knobs the daemon and CLI need: where the library lives, which endpoints the
// citation databases answer on, and how the scheduler paces itself.
//
// Per-user preferences are deliberately not part of Config; they are stored in
// the library and read through package prefs.
package config
