package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Filter narrows which lines are returned.
type Filter struct {
	// MinLevel is one of debug, info, warn, error. Empty keeps everything.
	MinLevel string
	// Contains keeps only lines containing the substring.
	Contains string
}

// Match reports whether line passes the filter. Lines without a recognizable
// level pass a level filter.
func (f Filter) Match(line string) bool {
	if f.Contains != "" && !strings.Contains(line, f.Contains) {
		return false
	}
	floor, ok := levelRank[strings.ToLower(f.MinLevel)]
	if !ok {
		return true
	}
	rank, ok := levelRank[lineLevel(line)]
	return !ok || rank >= floor
}

func lineLevel(line string) string {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var payload struct {
			Level string `json:"level"`
		}
		if json.Unmarshal([]byte(trimmed), &payload) == nil {
			return strings.ToLower(payload.Level)
		}
		return ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return ""
	}
	return strings.ToLower(fields[1])
}

// Tailer reads one log file.
type Tailer struct {
	Path   string
	Filter Filter
	// Poll is the follow-mode polling interval; zero means 250ms.
	Poll time.Duration
}

// Last returns up to n matching lines from the end of the file and the offset
// of its end. A missing file yields no lines and offset 0.
func (t *Tailer) Last(n int) ([]string, int64, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, n)
	count, next := 0, 0
	end, err := t.scan(file, func(line string) {
		ring[next] = line
		next = (next + 1) % n
		if count < n {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == n {
		start = next
	}
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%n])
	}
	return lines, end, nil
}

// Follow emits matching lines appended after offset until ctx ends. When the
// file shrinks below offset it is read again from the start.
func (t *Tailer) Follow(ctx context.Context, offset int64, emit func(line string)) error {
	poll := t.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := t.readFrom(offset, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (t *Tailer) readFrom(offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(t.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	return t.scanComplete(file, offset, emit)
}

// scan feeds every matching line to fn and returns the end offset.
func (t *Tailer) scan(r io.ReadSeeker, fn func(string)) (int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if line := scanner.Text(); t.Filter.Match(line) {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return end, nil
}

// scanComplete emits only newline-terminated lines so a partially written
// record is picked up whole on the next poll.
func (t *Tailer) scanComplete(r io.Reader, offset int64, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		if text := strings.TrimRight(line, "\r\n"); t.Filter.Match(text) {
			emit(text)
		}
	}
}
