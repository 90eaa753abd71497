package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"citetally/internal/netcheck"
	"citetally/internal/sources"
)

// Availability is satisfied by the library store.
type Availability interface {
	Available(ctx context.Context) bool
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckLibrary verifies that the record store answers queries.
func CheckLibrary(ctx context.Context, path string, lib Availability) Result {
	const name = "Library"

	if lib == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (not open)", path)}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if !lib.Available(checkCtx) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unavailable)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckNetwork dials the connectivity probe address.
func CheckNetwork(ctx context.Context, probe *netcheck.Probe) Result {
	const name = "Network"

	if probe == nil || probe.Address == "" {
		return Result{Name: name, Passed: true, Detail: "Probe disabled"}
	}
	if err := probe.Check(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", probe.Address, summarizeDialError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", probe.Address)}
}

// CheckDatabaseOrder reports configured databases that no client serves.
func CheckDatabaseOrder(order []string) Result {
	const name = "Databases"

	if len(order) == 0 {
		return Result{Name: name, Detail: "no databases configured"}
	}
	var unknown []string
	for _, db := range order {
		if !sources.Known(db) {
			unknown = append(unknown, db)
		}
	}
	if len(unknown) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("unknown databases: %v", unknown)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%v", order)}
}

func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
