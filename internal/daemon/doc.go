// Package daemon coordinates the long-running citetally process.
//
// It wires configuration, the library store and the tally updater into a
// single lifecycle with flock-based locking to prevent multiple instances.
// While running it performs the startup automatic update, sweeps the ignored
// ledger for vanished records and watches the library for newly added records.
//
// Keep orchestration logic here: update semantics live in the tally package
// while the daemon focuses on startup, shutdown, and background scheduling.
package daemon
