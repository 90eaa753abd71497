// Package tally runs citation count updates against the host library.
//
// An Updater owns the rate limit manager, the ignore ledger and the lookup
// clients for the lifetime of the process. Three entry points share one
// per-record pipeline (UpdateRecord):
//
//   - UpdateRecords processes an explicit selection and never consults the
//     ignore ledger.
//   - StartAutomatic sweeps the library for stale records, newest first, and
//     pauses and retries when the network drops or a database rate limits.
//   - HandleAdded processes records that just appeared in the library.
//
// Runs process records one at a time on the calling goroutine. At most one
// automatic run may be in flight.
package tally
