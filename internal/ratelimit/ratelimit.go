// Package ratelimit spaces requests to each citation database and adapts the
// spacing to the 429 responses it sees.
//
// Every database has a base delay (overridable through the rateLimits
// preference) scaled by a multiplier in [1, 10]. Await is the single admission
// point: it blocks until at least Delay(db) has passed since the previous
// admission for that database.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"citetally/internal/logging"
	"citetally/internal/prefs"
)

const (
	MaxMultiplier     = 10.0
	backoffFactor     = 1.5
	recoveryFactor    = 0.9
	defaultBaseDelay  = time.Second
	semanticBaseDelay = 3 * time.Second
)

// DefaultDelays are the base delays used when no override is set.
var DefaultDelays = map[string]time.Duration{
	"crossref":        defaultBaseDelay,
	"inspire":         defaultBaseDelay,
	"semanticscholar": semanticBaseDelay,
}

// State is a diagnostic snapshot of one database's limiter.
type State struct {
	Base       time.Duration
	Multiplier float64
	Delay      time.Duration
	Last       time.Time
}

// Options configures a Manager.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	Sleep  func(context.Context, time.Duration) error
}

type gate struct {
	lim        *rate.Limiter
	delay      time.Duration
	multiplier float64
	last       time.Time
}

// Manager holds per-database limiter state. It is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	gates     map[string]*gate
	overrides map[string]time.Duration
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

// New constructs a Manager with default base delays.
func New(opts Options) *Manager {
	m := &Manager{
		gates:     map[string]*gate{},
		overrides: map[string]time.Duration{},
		logger:    logging.NewComponentLogger(opts.Logger, "ratelimit"),
		now:       opts.Now,
		sleep:     opts.Sleep,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.sleep == nil {
		m.sleep = SleepWithContext
	}
	return m
}

// LoadOverrides reads base delay overrides from the rateLimits preference, a
// JSON object of database name to milliseconds. Invalid JSON clears all
// overrides; non-positive entries are ignored.
func (m *Manager) LoadOverrides(ctx context.Context, store prefs.Store) error {
	raw, ok, err := store.Get(ctx, prefs.KeyRateLimits)
	if err != nil {
		return err
	}
	overrides := map[string]time.Duration{}
	if ok && raw != "" {
		var parsed map[string]float64
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			logging.WarnWithContext(m.logger, "rate limit preference unreadable; using defaults", "rate_limits_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set rateLimits to a JSON object such as {\"crossref\":1000}"),
				logging.String(logging.FieldImpact, "default request spacing applies"),
			)
		} else {
			for db, ms := range parsed {
				if ms > 0 {
					overrides[db] = time.Duration(ms * float64(time.Millisecond))
				}
			}
		}
	}
	m.mu.Lock()
	m.overrides = overrides
	m.mu.Unlock()
	return nil
}

// ValidateOverrides checks a rateLimits value: a JSON object mapping known
// database names to positive millisecond delays.
func ValidateOverrides(raw string) error {
	var parsed map[string]float64
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil || parsed == nil {
		return errors.New("rateLimits must be a JSON object of database name to milliseconds, such as {\"crossref\":1000}")
	}
	for db, ms := range parsed {
		if _, ok := DefaultDelays[db]; !ok {
			return fmt.Errorf("rateLimits: unknown database %q", db)
		}
		if ms <= 0 {
			return fmt.Errorf("rateLimits: delay for %s must be a positive number of milliseconds", db)
		}
	}
	return nil
}

// SetBase overrides one database's base delay. A non-positive value restores the default.
func (m *Manager) SetBase(database string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d <= 0 {
		delete(m.overrides, database)
		return
	}
	m.overrides[database] = d
}

func (m *Manager) baseLocked(database string) time.Duration {
	if d, ok := m.overrides[database]; ok {
		return d
	}
	if d, ok := DefaultDelays[database]; ok {
		return d
	}
	return defaultBaseDelay
}

func (m *Manager) gateLocked(database string) *gate {
	g, ok := m.gates[database]
	if !ok {
		g = &gate{multiplier: 1}
		m.gates[database] = g
	}
	return g
}

func (m *Manager) delayLocked(database string) time.Duration {
	mult := 1.0
	if g, ok := m.gates[database]; ok {
		mult = g.multiplier
	}
	return time.Duration(float64(m.baseLocked(database)) * mult)
}

// Delay returns the current minimum spacing for database.
func (m *Manager) Delay(database string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delayLocked(database)
}

// Multiplier returns the current adaptive multiplier for database.
func (m *Manager) Multiplier(database string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gates[database]; ok {
		return g.multiplier
	}
	return 1
}

// Await blocks until database may be queried again, then records the admission.
func (m *Manager) Await(ctx context.Context, database string) error {
	m.mu.Lock()
	g := m.gateLocked(database)
	delay := m.delayLocked(database)
	if g.lim == nil || g.delay != delay {
		g.lim = rate.NewLimiter(rate.Every(delay), 1)
		if !g.last.IsZero() {
			g.lim.AllowN(g.last, 1)
		}
		g.delay = delay
	}
	now := m.now()
	reservation := g.lim.ReserveN(now, 1)
	wait := reservation.DelayFrom(now)
	// Admissions stay at least delay apart, pending ones included.
	if !g.last.IsZero() {
		wait = max(wait, g.last.Add(delay).Sub(now))
	}
	previous := g.last
	admitted := now.Add(wait)
	g.last = admitted
	multiplier := g.multiplier
	m.mu.Unlock()

	if wait > 0 {
		m.logger.Debug("rate limiting",
			logging.String(logging.FieldDatabase, database),
			logging.Duration("wait", wait),
			logging.Any("multiplier", multiplier),
		)
	}
	if err := m.sleep(ctx, wait); err != nil {
		m.mu.Lock()
		reservation.CancelAt(m.now())
		if g.last.Equal(admitted) {
			g.last = previous
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// OnRateLimited widens the spacing for database after a 429.
func (m *Manager) OnRateLimited(database string) {
	m.mu.Lock()
	g := m.gateLocked(database)
	g.multiplier = min(g.multiplier*backoffFactor, MaxMultiplier)
	mult := g.multiplier
	m.mu.Unlock()

	m.logger.Info("rate limit detected; increasing request spacing",
		logging.String(logging.FieldDatabase, database),
		logging.Any("multiplier", mult),
		logging.String(logging.FieldEventType, "rate_limit_backoff"),
	)
}

// OnSuccess narrows the spacing for database after a successful lookup.
func (m *Manager) OnSuccess(database string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.gateLocked(database)
	if g.multiplier > 1 {
		g.multiplier = max(g.multiplier*recoveryFactor, 1)
	}
}

// Snapshot returns limiter state for every database seen so far, plus the
// defaults.
func (m *Manager) Snapshot() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := map[string]struct{}{}
	for db := range DefaultDelays {
		names[db] = struct{}{}
	}
	for db := range m.gates {
		names[db] = struct{}{}
	}
	out := make(map[string]State, len(names))
	for db := range names {
		st := State{Base: m.baseLocked(db), Multiplier: 1, Delay: m.delayLocked(db)}
		if g, ok := m.gates[db]; ok {
			st.Multiplier = g.multiplier
			st.Last = g.last
		}
		out[db] = st
	}
	return out
}

// Databases lists the names in a snapshot in sorted order.
func Databases(snapshot map[string]State) []string {
	names := make([]string, 0, len(snapshot))
	for db := range snapshot {
		names = append(names, db)
	}
	sort.Strings(names)
	return names
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
