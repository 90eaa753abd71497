package preflight

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"citetally/internal/config"
	"citetally/internal/netcheck"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type availability bool

func (a availability) Available(context.Context) bool { return bool(a) }

func TestCheckLibrary(t *testing.T) {
	if r := CheckLibrary(context.Background(), "lib.db", availability(true)); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckLibrary(context.Background(), "lib.db", availability(false)); r.Passed {
		t.Fatal("expected failure for unavailable library")
	}
	if r := CheckLibrary(context.Background(), "lib.db", nil); r.Passed {
		t.Fatal("expected failure for nil library")
	}
}

func TestCheckNetwork(t *testing.T) {
	ok := &netcheck.Probe{Address: "example.test:443", Dial: func(context.Context, string, string) (net.Conn, error) {
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}}
	if r := CheckNetwork(context.Background(), ok); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}

	down := &netcheck.Probe{Address: "example.test:443", Dial: func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	}}
	r := CheckNetwork(context.Background(), down)
	if r.Passed || !strings.Contains(r.Detail, "connection refused") {
		t.Fatalf("unexpected result %+v", r)
	}

	if r := CheckNetwork(context.Background(), netcheck.New("", 0)); !r.Passed {
		t.Fatal("disabled probe should pass")
	}
}

func TestCheckDatabaseOrder(t *testing.T) {
	if r := CheckDatabaseOrder([]string{"crossref", "inspire"}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckDatabaseOrder([]string{"crossref", "scopus"}); r.Passed || !strings.Contains(r.Detail, "scopus") {
		t.Fatalf("unexpected result %+v", r)
	}
	if r := CheckDatabaseOrder(nil); r.Passed {
		t.Fatal("empty order should fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Network.ProbeAddress = ""

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesNetworkWhenProbeConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "missing")
	cfg.Network.ProbeAddress = "127.0.0.1:1"
	cfg.Network.ProbeTimeoutSeconds = 1

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 || results[2].Name != "Network" {
		t.Fatalf("expected network check, got %+v", results)
	}
	failed := Failed(results)
	if len(failed) < 1 || failed[0].Name != "Log directory" {
		t.Fatalf("expected log directory failure, got %+v", failed)
	}
}
