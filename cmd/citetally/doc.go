// Command citetally keeps citation counts in the extra field of library
// records current.
//
// The daemon subcommand runs the background services: the startup automatic
// update, the ignored-ledger sweep and added-record tallying. The remaining
// subcommands open the library directly for manual updates, record
// inspection, preference editing and health reporting.
package main
