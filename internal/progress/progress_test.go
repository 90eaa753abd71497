package progress

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsolePlainOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	sink.Start("Citation Tally", "Getting citation tallies")
	sink.Tick(1, 2, 50, "Item 2 of 2")
	sink.Notice("No valid items selected")
	sink.Succeed("2 item(s) updated")
	sink.Fail("stopped")
	sink.Close()
	sink.Notice("after close")

	want := strings.Join([]string{
		"Citation Tally",
		"  Getting citation tallies",
		"  [ 50%] Item 2 of 2",
		"  No valid items selected",
		"  2 item(s) updated",
		"  stopped",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestFactoriesReturnNopWhenSilent(t *testing.T) {
	var buf bytes.Buffer
	sink := ConsoleFactory(&buf)(true)
	if _, ok := sink.(Nop); !ok {
		t.Fatalf("expected Nop, got %T", sink)
	}
	sink.Start("x", "y")
	if buf.Len() != 0 {
		t.Fatal("silent sink wrote output")
	}
	if _, ok := LogFactory(nil)(false).(*Log); !ok {
		t.Fatal("expected Log sink")
	}
}

func TestLogSinkRecordsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLog(logger)
	sink.Start("Run", "")
	sink.Tick(0, 3, 0, "Item 1 of 3")
	sink.Fail("stopped")

	out := buf.String()
	for _, fragment := range []string{"event_type=progress_start", "percent=0", "event_type=progress_failed", "component=progress"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("missing %q in %s", fragment, out)
		}
	}
}

func TestIsTerminalRejectsBuffers(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatal("buffer is not a terminal")
	}
}
