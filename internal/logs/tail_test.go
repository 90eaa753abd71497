package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"citetally/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citetally.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")
	tailer := &logs.Tailer{Path: path}

	lines, offset, err := tailer.Last(2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d want 6", offset)
	}

	lines, _, err = tailer.Last(10)
	if err != nil || len(lines) != 3 {
		t.Fatalf("Last(10) = %#v, %v", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	tailer := &logs.Tailer{Path: filepath.Join(t.TempDir(), "none.log")}
	lines, offset, err := tailer.Last(5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("Last = %#v, %d, %v", lines, offset, err)
	}
}

func TestFilterByLevel(t *testing.T) {
	content := "2026-01-02T15:04:05Z INFO tally: started\n" +
		"2026-01-02T15:04:06Z WARN tally[crossref]: rate limited\n" +
		`{"ts":"2026-01-02T15:04:07Z","level":"error","msg":"save failed"}` + "\n" +
		"plain line\n"
	tailer := &logs.Tailer{Path: writeLog(t, content), Filter: logs.Filter{MinLevel: "warn"}}

	lines, _, err := tailer.Last(10)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected warn, error and unleveled lines, got %#v", lines)
	}

	contains := logs.Filter{Contains: "crossref"}
	if !contains.Match("WARN tally[crossref]: x") || contains.Match("INFO other") {
		t.Fatal("Contains filter mismatch")
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	tailer := &logs.Tailer{Path: path, Poll: 10 * time.Millisecond}
	_, offset, err := tailer.Last(1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- tailer.Follow(ctx, offset, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "later" {
		t.Fatalf("unexpected follow lines: %#v", got)
	}
}
