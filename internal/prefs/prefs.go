// Package prefs reads and writes citetally's user preferences through the
// host key-value store.
package prefs

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync"
)

// Store is the host preference key-value contract.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Preference keys.
const (
	KeyDatabaseOrder    = "databaseOrder"
	KeyRateLimits       = "rateLimits"
	KeyIgnoredItems     = "ignoredItems"
	KeyAutoUpdate       = "autoUpdate"
	KeyAutoUpdateCutoff = "autoUpdateCutoff"
	KeyUseColors        = "useColors"
)

// Auto-update modes.
const (
	AutoUpdateNever   = "never"
	AutoUpdateStartup = "startup"
)

const (
	defaultDatabaseOrder = "crossref"
	defaultCutoffMonths  = 6
)

// Keys lists every preference the CLI may read or write.
func Keys() []string {
	return []string{KeyDatabaseOrder, KeyRateLimits, KeyIgnoredItems, KeyAutoUpdate, KeyAutoUpdateCutoff, KeyUseColors}
}

func get(ctx context.Context, s Store, key string) (string, error) {
	value, ok, err := s.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(value), nil
}

// DatabaseOrder returns the configured database names in query order. An
// unset preference yields crossref alone.
func DatabaseOrder(ctx context.Context, s Store) ([]string, error) {
	value, err := get(ctx, s, KeyDatabaseOrder)
	if err != nil {
		return nil, err
	}
	if value == "" {
		value = defaultDatabaseOrder
	}
	var order []string
	for _, part := range strings.Split(value, ",") {
		if name := strings.TrimSpace(part); name != "" {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		order = []string{defaultDatabaseOrder}
	}
	return order, nil
}

// AutoUpdateMode returns never or startup; anything else reads as never.
func AutoUpdateMode(ctx context.Context, s Store) (string, error) {
	value, err := get(ctx, s, KeyAutoUpdate)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(value, AutoUpdateStartup) {
		return AutoUpdateStartup, nil
	}
	return AutoUpdateNever, nil
}

// AutoUpdateCutoff returns the staleness cutoff in months.
func AutoUpdateCutoff(ctx context.Context, s Store) (int, error) {
	value, err := get(ctx, s, KeyAutoUpdateCutoff)
	if err != nil {
		return 0, err
	}
	months, convErr := strconv.Atoi(value)
	if convErr != nil || months <= 0 {
		return defaultCutoffMonths, nil
	}
	return months, nil
}

// UseColors reports whether per-database colors are enabled.
func UseColors(ctx context.Context, s Store) (bool, error) {
	value, err := get(ctx, s, KeyUseColors)
	if err != nil {
		return false, err
	}
	return value == "color", nil
}

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns a Memory store seeded with values.
func NewMemory(values map[string]string) *Memory {
	m := &Memory{values: map[string]string{}}
	maps.Copy(m.values, values)
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
