package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"citetally/internal/config"
	"citetally/internal/library"
	"citetally/internal/prefs"
	"citetally/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, handler http.HandlerFunc) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("SEMANTIC_SCHOLAR_API_KEY", "")

	if handler == nil {
		handler = func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithSourceURL(server.URL))
	configPath := filepath.Join(base, "citetally.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// withStore opens the test library outside the CLI to seed or inspect it.
func (e *cliTestEnv) withStore(t *testing.T, fn func(store *library.Store)) {
	t.Helper()
	store, err := library.Open(e.cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	defer store.Close()
	fn(store)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func countHandler(count int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/crossref/"):
			fmt.Fprintf(w, `{"is-referenced-by-count": %d}`, count)
		case strings.HasPrefix(r.URL.Path, "/inspire/"):
			fmt.Fprintf(w, `{"metadata": {"citation_count": %d}}`, count+1)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestAddUpdateAndShow(t *testing.T) {
	env := setupCLITestEnv(t, countHandler(12))

	out, _, err := runCLI(t, []string{"add", "--title", "Gauge theory", "--doi", "10.1/gauge"}, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Added record 1")

	out, stderr, err := runCLI(t, []string{"update", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	requireContains(t, out, "Updated 1 of 1 record(s)")
	requireContains(t, stderr, "Getting citation tallies...")

	out, _, err = runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Identifier: doi:10.1/gauge")
	requireContains(t, out, "Crossref: 12")
	requireContains(t, out, "Citations: 12 (Crossref) [")

	out, _, err = runCLI(t, []string{"list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Gauge theory")
	requireContains(t, out, "12")
}

func TestUpdateWithSeveralDatabases(t *testing.T) {
	env := setupCLITestEnv(t, countHandler(5))
	env.withStore(t, func(store *library.Store) {
		testsupport.AddRecord(t, store, map[string]string{library.FieldDOI: "10.1/multi"})
		_ = store.Prefs().Set(context.Background(), prefs.KeyDatabaseOrder, "crossref,inspire")
	})

	if _, _, err := runCLI(t, []string{"update", "--silent", "1"}, env.configPath); err != nil {
		t.Fatalf("update: %v", err)
	}
	out, _, err := runCLI(t, []string{"show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "5 / 6")
	requireContains(t, out, "Crossref: 5")
	requireContains(t, out, "INSPIRE: 6")
}

func TestUpdateRejectsInvalidIDs(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	if _, _, err := runCLI(t, []string{"update", "abc"}, env.configPath); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestUpdateNonRegularRecordReportsNotice(t *testing.T) {
	env := setupCLITestEnv(t, countHandler(1))
	env.withStore(t, func(store *library.Store) {
		testsupport.AddTypedRecord(t, store, library.TypeNote, time.Time{}, map[string]string{})
	})

	_, stderr, err := runCLI(t, []string{"update", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	requireContains(t, stderr, "No valid items selected")
}

func TestRetallyNothingOutdated(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	out, _, err := runCLI(t, []string{"retally"}, env.configPath)
	if err != nil {
		t.Fatalf("retally: %v", err)
	}
	requireContains(t, out, "No outdated records")
}

func TestRetallyUpdatesOutdatedRecords(t *testing.T) {
	env := setupCLITestEnv(t, countHandler(3))
	env.withStore(t, func(store *library.Store) {
		testsupport.AddRecord(t, store, map[string]string{library.FieldDOI: "10.1/stale"})
	})
	out, _, err := runCLI(t, []string{"retally"}, env.configPath)
	if err != nil {
		t.Fatalf("retally: %v", err)
	}
	requireContains(t, out, "Updated 1 of 1 outdated record(s)")
}

func TestIgnoredListAndClear(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	env.withStore(t, func(store *library.Store) {
		testsupport.AddRecord(t, store, map[string]string{library.FieldDOI: "10.1/missing"})
	})

	if _, _, err := runCLI(t, []string{"retally"}, env.configPath); err != nil {
		t.Fatalf("retally: %v", err)
	}
	out, _, err := runCLI(t, []string{"ignored", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("ignored list: %v", err)
	}
	requireContains(t, out, "Crossref")

	out, _, err = runCLI(t, []string{"ignored", "clear", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("ignored clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 record(s)")

	out, _, err = runCLI(t, []string{"ignored", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("ignored list: %v", err)
	}
	requireContains(t, out, "No ignored entries")
}

func TestPrefsGetSet(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, []string{"prefs", "set", prefs.KeyDatabaseOrder, "Inspire, crossref"}, env.configPath)
	if err != nil {
		t.Fatalf("prefs set: %v", err)
	}
	requireContains(t, out, "Valid database configuration")

	out, _, err = runCLI(t, []string{"prefs", "get", prefs.KeyDatabaseOrder}, env.configPath)
	if err != nil {
		t.Fatalf("prefs get: %v", err)
	}
	requireContains(t, out, "databaseOrder = inspire,crossref")

	if _, _, err := runCLI(t, []string{"prefs", "set", prefs.KeyDatabaseOrder, "crossref,crossref"}, env.configPath); err == nil {
		t.Fatal("expected duplicate databases to be rejected")
	}
	if _, _, err := runCLI(t, []string{"prefs", "set", prefs.KeyAutoUpdate, "hourly"}, env.configPath); err == nil {
		t.Fatal("expected invalid autoUpdate value to be rejected")
	}
	if _, _, err := runCLI(t, []string{"prefs", "set", prefs.KeyIgnoredItems, "{}"}, env.configPath); err == nil {
		t.Fatal("expected internal preference to be read-only")
	}

	out, _, err = runCLI(t, []string{"prefs", "set", prefs.KeyRateLimits, `{"crossref":2000}`}, env.configPath)
	if err != nil {
		t.Fatalf("prefs set rateLimits: %v", err)
	}
	requireContains(t, out, `rateLimits = {"crossref":2000}`)
	for _, bad := range []string{`{"crossref":0}`, `fast`, `{"scopus":500}`} {
		if _, _, err := runCLI(t, []string{"prefs", "set", prefs.KeyRateLimits, bad}, env.configPath); err == nil {
			t.Fatalf("expected rateLimits %q to be rejected", bad)
		}
	}
}

func TestDatabasesValidate(t *testing.T) {
	out, _, err := runCLI(t, []string{"databases", "validate", "crossref,semanticscholar"}, "")
	if err != nil {
		t.Fatalf("databases validate: %v", err)
	}
	requireContains(t, out, "Valid database configuration")

	out, _, err = runCLI(t, []string{"databases", "validate", "crossref,scopus"}, "")
	if err == nil {
		t.Fatal("expected invalid database error")
	}
	requireContains(t, out, "Invalid database(s): scopus")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Not running")
	requireContains(t, out, "Records:")
	requireContains(t, out, "Auto update:")
	requireContains(t, out, "Data directory:")
}

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t, nil)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "crossref_base_url")
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t, nil)
	content := "2026-01-02T15:04:05Z INFO daemon: citetally daemon started\n" +
		"2026-01-02T15:04:06Z WARN tally[crossref]: rate limited\n"
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "rate limited")
	if strings.Contains(out, "daemon started") {
		t.Fatalf("info line should be filtered: %q", out)
	}
}
