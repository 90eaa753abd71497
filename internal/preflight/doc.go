// Package preflight provides readiness checks for the filesystem paths,
// library database and network access that citetally depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs any failures.
//   - The CLI "citetally status" command uses the individual check functions
//     (CheckDirectoryAccess, CheckLibrary, CheckNetwork) to display health.
package preflight
