// Package progress renders update-run progress for the operator.
//
// A Sink receives display-only events from one run. Console writes them to a
// terminal or plain stream, Log turns them into structured log records, and
// Nop discards them for silent runs.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"citetally/internal/logging"
)

// Sink receives progress events for a single run.
type Sink interface {
	Start(title, message string)
	Tick(current, total, percent int, message string)
	Notice(message string)
	Succeed(message string)
	Fail(message string)
	Close()
}

// Factory opens a sink for a run. silent runs get a sink that shows nothing
// to the operator.
type Factory func(silent bool) Sink

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Console writes progress lines to w. On a terminal ticks redraw in place and
// outcomes are colored.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	tty    bool
	inTick bool
	closed bool
}

// NewConsole returns a Console for w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, tty: IsTerminal(w)}
}

func (c *Console) paint(color text.Colors, s string) string {
	if !c.tty {
		return s
	}
	return color.Sprint(s)
}

func (c *Console) line(s string) {
	if c.closed {
		return
	}
	if c.inTick {
		fmt.Fprintln(c.w)
		c.inTick = false
	}
	fmt.Fprintln(c.w, s)
}

func (c *Console) Start(title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.paint(text.Colors{text.Bold}, title))
	if message != "" {
		c.line("  " + message)
	}
}

func (c *Console) Tick(current, total, percent int, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	rendered := fmt.Sprintf("  [%3d%%] %s", percent, message)
	if c.tty {
		fmt.Fprintf(c.w, "\r\x1b[2K%s", rendered)
		c.inTick = true
		return
	}
	fmt.Fprintln(c.w, rendered)
}

func (c *Console) Notice(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.paint(text.Colors{text.FgYellow}, "  "+message))
}

func (c *Console) Succeed(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.paint(text.Colors{text.FgGreen}, "  "+message))
}

func (c *Console) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(c.paint(text.Colors{text.FgRed}, "  "+message))
}

func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTick {
		fmt.Fprintln(c.w)
		c.inTick = false
	}
	c.closed = true
}

// Log records progress events on a logger.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log sink.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logging.NewComponentLogger(logger, "progress")}
}

func (l *Log) Start(title, message string) {
	l.logger.Info(strings.TrimSpace(title+" "+message), logging.String(logging.FieldEventType, "progress_start"))
}

func (l *Log) Tick(current, total, percent int, message string) {
	l.logger.Debug(message,
		logging.Int("current", current),
		logging.Int("total", total),
		logging.Int("percent", percent),
	)
}

func (l *Log) Notice(message string) {
	l.logger.Info(message, logging.String(logging.FieldEventType, "progress_notice"))
}

func (l *Log) Succeed(message string) {
	l.logger.Info(message, logging.String(logging.FieldEventType, "progress_complete"))
}

func (l *Log) Fail(message string) {
	logging.WarnWithContext(l.logger, message, "progress_failed",
		logging.String(logging.FieldErrorHint, "inspect earlier log lines for the cause"),
		logging.String(logging.FieldImpact, "remaining records were not updated"),
	)
}

func (l *Log) Close() {}

// Nop discards every event.
type Nop struct{}

func (Nop) Start(string, string)       {}
func (Nop) Tick(int, int, int, string) {}
func (Nop) Notice(string)              {}
func (Nop) Succeed(string)             {}
func (Nop) Fail(string)                {}
func (Nop) Close()                     {}

// ConsoleFactory opens Console sinks on w, and Nop sinks for silent runs.
func ConsoleFactory(w io.Writer) Factory {
	return func(silent bool) Sink {
		if silent {
			return Nop{}
		}
		return NewConsole(w)
	}
}

// LogFactory opens Log sinks; silent runs log nothing.
func LogFactory(logger *slog.Logger) Factory {
	return func(silent bool) Sink {
		if silent {
			return Nop{}
		}
		return NewLog(logger)
	}
}
