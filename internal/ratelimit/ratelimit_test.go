package ratelimit_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"citetally/internal/prefs"
	"citetally/internal/ratelimit"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func near(got, want time.Duration) bool {
	diff := got - want
	return diff > -time.Millisecond && diff < time.Millisecond
}

func newManager(clock *fakeClock) *ratelimit.Manager {
	return ratelimit.New(ratelimit.Options{Now: clock.Now, Sleep: clock.Sleep})
}

func TestDefaultDelays(t *testing.T) {
	m := newManager(&fakeClock{now: time.Unix(0, 0)})
	tests := map[string]time.Duration{
		"crossref":        time.Second,
		"inspire":         time.Second,
		"semanticscholar": 3 * time.Second,
		"unknown":         time.Second,
	}
	for db, want := range tests {
		if got := m.Delay(db); got != want {
			t.Fatalf("Delay(%s) = %s, want %s", db, got, want)
		}
	}
}

func TestAwaitSpacesRequests(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m := newManager(clock)
	ctx := context.Background()

	if err := m.Await(ctx, "crossref"); err != nil {
		t.Fatalf("first Await: %v", err)
	}
	if clock.sleeps[0] != 0 {
		t.Fatalf("first admission should not wait, waited %s", clock.sleeps[0])
	}

	clock.now = clock.now.Add(300 * time.Millisecond)
	if err := m.Await(ctx, "crossref"); err != nil {
		t.Fatalf("second Await: %v", err)
	}
	if got := clock.sleeps[1]; !near(got, 700*time.Millisecond) {
		t.Fatalf("expected 700ms wait, got %s", got)
	}

	// other databases are independent
	if err := m.Await(ctx, "inspire"); err != nil {
		t.Fatalf("inspire Await: %v", err)
	}
	if got := clock.sleeps[2]; got != 0 {
		t.Fatalf("expected independent inspire admission, waited %s", got)
	}

	clock.now = clock.now.Add(5 * time.Second)
	if err := m.Await(ctx, "crossref"); err != nil {
		t.Fatalf("third Await: %v", err)
	}
	if got := clock.sleeps[3]; got != 0 {
		t.Fatalf("expected no wait after idle period, got %s", got)
	}
}

func TestAwaitHonoursMultiplierChange(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m := newManager(clock)
	ctx := context.Background()

	_ = m.Await(ctx, "crossref")
	m.OnRateLimited("crossref")
	clock.now = clock.now.Add(500 * time.Millisecond)
	if err := m.Await(ctx, "crossref"); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got := clock.sleeps[1]; !near(got, time.Second) {
		t.Fatalf("expected 1s wait at 1.5x multiplier, got %s", got)
	}
}

func TestAwaitSpacesPendingAdmissionsAfterBackoff(t *testing.T) {
	start := time.Unix(2000, 0)
	var waits []time.Duration
	m := ratelimit.New(ratelimit.Options{
		Now: func() time.Time { return start },
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	})
	ctx := context.Background()

	// two callers admitted at the same instant hold the next slot in the future
	for i := 0; i < 2; i++ {
		if err := m.Await(ctx, "crossref"); err != nil {
			t.Fatalf("Await %d: %v", i, err)
		}
	}
	m.OnRateLimited("crossref")
	if err := m.Await(ctx, "crossref"); err != nil {
		t.Fatalf("Await after backoff: %v", err)
	}

	want := []time.Duration{0, time.Second, 2500 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v", waits)
	}
	for i := range want {
		if !near(waits[i], want[i]) {
			t.Fatalf("wait %d = %s, want %s (all %v)", i, waits[i], want[i], waits)
		}
	}
}

func TestAwaitCancelled(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	m := newManager(clock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Await(ctx, "crossref"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// cancelled admission must not consume the slot
	if err := m.Await(context.Background(), "crossref"); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got := clock.sleeps[len(clock.sleeps)-1]; got != 0 {
		t.Fatalf("expected immediate admission after cancelled wait, got %s", got)
	}
}

func TestMultiplierFeedback(t *testing.T) {
	m := newManager(&fakeClock{now: time.Unix(0, 0)})
	m.OnSuccess("crossref")
	if got := m.Multiplier("crossref"); got != 1 {
		t.Fatalf("success at 1x must not change multiplier, got %v", got)
	}
	m.OnRateLimited("crossref")
	if got := m.Multiplier("crossref"); got != 1.5 {
		t.Fatalf("expected 1.5x, got %v", got)
	}
	m.OnSuccess("crossref")
	if got := m.Multiplier("crossref"); got < 1.349 || got > 1.351 {
		t.Fatalf("expected 1.35x, got %v", got)
	}
	if got := m.Delay("crossref"); !near(got, 1350*time.Millisecond) {
		t.Fatalf("unexpected delay %s", got)
	}
}

func TestMultiplierStaysBounded(t *testing.T) {
	m := newManager(&fakeClock{now: time.Unix(0, 0)})
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		if rng.Intn(2) == 0 {
			m.OnRateLimited("semanticscholar")
		} else {
			m.OnSuccess("semanticscholar")
		}
		got := m.Multiplier("semanticscholar")
		if got < 1 || got > ratelimit.MaxMultiplier {
			t.Fatalf("multiplier %v out of bounds after %d steps", got, i)
		}
	}
	for i := 0; i < 20; i++ {
		m.OnRateLimited("semanticscholar")
	}
	if got := m.Multiplier("semanticscholar"); got != ratelimit.MaxMultiplier {
		t.Fatalf("expected cap at %v, got %v", ratelimit.MaxMultiplier, got)
	}
}

func TestLoadOverrides(t *testing.T) {
	ctx := context.Background()
	m := newManager(&fakeClock{now: time.Unix(0, 0)})

	store := prefs.NewMemory(map[string]string{prefs.KeyRateLimits: `{"crossref": 250, "inspire": -5}`})
	if err := m.LoadOverrides(ctx, store); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}
	if got := m.Delay("crossref"); got != 250*time.Millisecond {
		t.Fatalf("expected override, got %s", got)
	}
	if got := m.Delay("inspire"); got != time.Second {
		t.Fatalf("non-positive override must fall back, got %s", got)
	}

	_ = store.Set(ctx, prefs.KeyRateLimits, "{not json")
	if err := m.LoadOverrides(ctx, store); err != nil {
		t.Fatalf("LoadOverrides invalid: %v", err)
	}
	if got := m.Delay("crossref"); got != time.Second {
		t.Fatalf("invalid JSON must restore defaults, got %s", got)
	}
}

func TestSnapshot(t *testing.T) {
	m := newManager(&fakeClock{now: time.Unix(0, 0)})
	m.OnRateLimited("inspire")
	snap := m.Snapshot()
	if snap["inspire"].Multiplier != 1.5 || !near(snap["inspire"].Delay, 1500*time.Millisecond) {
		t.Fatalf("unexpected inspire state %+v", snap["inspire"])
	}
	names := ratelimit.Databases(snap)
	if len(names) != 3 || names[0] != "crossref" {
		t.Fatalf("unexpected snapshot databases %v", names)
	}
}

func TestValidateOverrides(t *testing.T) {
	valid := []string{`{}`, `{"crossref":1000}`, `{"inspire":250.5,"semanticscholar":4000}`}
	for _, raw := range valid {
		if err := ratelimit.ValidateOverrides(raw); err != nil {
			t.Fatalf("ValidateOverrides(%s): %v", raw, err)
		}
	}
	invalid := []string{``, `null`, `[1000]`, `{"crossref":"fast"}`, `{"crossref":0}`, `{"inspire":-5}`, `{"scopus":1000}`}
	for _, raw := range invalid {
		if err := ratelimit.ValidateOverrides(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
