package tally

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"citetally/internal/config"
	"citetally/internal/extra"
	"citetally/internal/identifier"
	"citetally/internal/ignored"
	"citetally/internal/library"
	"citetally/internal/locale"
	"citetally/internal/logging"
	"citetally/internal/netcheck"
	"citetally/internal/prefs"
	"citetally/internal/progress"
	"citetally/internal/ratelimit"
	"citetally/internal/services"
	"citetally/internal/sources"
	"citetally/internal/staleness"
)

// AppName titles progress output.
const AppName = "Citation Tally"

// Host is the record store the Updater reads from and writes to.
type Host interface {
	Get(ctx context.Context, id int64) (*library.Record, error)
	Save(ctx context.Context, rec *library.Record) error
	Search(ctx context.Context, filter library.Filter) ([]int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Available(ctx context.Context) bool
}

// Connectivity reports whether the network is usable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Updater coordinates citation lookups and annotation rewrites.
type Updater struct {
	cfg      *config.Config
	host     Host
	prefs    prefs.Store
	logger   *slog.Logger
	rates    *ratelimit.Manager
	ledger   *ignored.Ledger
	registry *sources.Registry
	network  Connectivity
	progress progress.Factory
	printer  *locale.Printer
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
	doer     sources.HTTPDoer

	auto autoState
}

// Option configures optional Updater behavior.
type Option func(*Updater)

// WithRateManager shares an existing rate limit manager.
func WithRateManager(m *ratelimit.Manager) Option {
	return func(u *Updater) { u.rates = m }
}

// WithLedger shares an existing ignore ledger.
func WithLedger(l *ignored.Ledger) Option {
	return func(u *Updater) { u.ledger = l }
}

// WithRegistry replaces the lookup clients.
func WithRegistry(r *sources.Registry) Option {
	return func(u *Updater) { u.registry = r }
}

// WithHTTPClient sets the HTTP client used by the default lookup clients.
func WithHTTPClient(doer sources.HTTPDoer) Option {
	return func(u *Updater) { u.doer = doer }
}

// WithConnectivity replaces the network probe.
func WithConnectivity(c Connectivity) Option {
	return func(u *Updater) { u.network = c }
}

// WithProgress sets how runs report progress.
func WithProgress(f progress.Factory) Option {
	return func(u *Updater) { u.progress = f }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) { u.now = now }
}

// WithSleep sets how scheduler delays are waited out.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(u *Updater) { u.sleep = sleep }
}

// WithPrinter sets the message catalog printer.
func WithPrinter(p *locale.Printer) Option {
	return func(u *Updater) { u.printer = p }
}

// New constructs an Updater. Collaborators not supplied through options are
// built from cfg.
func New(cfg *config.Config, host Host, store prefs.Store, logger *slog.Logger, opts ...Option) *Updater {
	u := &Updater{
		cfg:    cfg,
		host:   host,
		prefs:  store,
		logger: logging.NewComponentLogger(logger, "tally"),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.sleep == nil {
		u.sleep = ratelimit.SleepWithContext
	}
	if u.rates == nil {
		u.rates = ratelimit.New(ratelimit.Options{Logger: logger, Now: u.now})
	}
	if u.ledger == nil {
		durable := ignored.NewDurableStore(store, u.now, logger)
		u.ledger = ignored.NewLedger(nil, durable, u.now, logger)
	}
	if u.registry == nil {
		u.registry = sources.NewRegistry(cfg, u.rates, u.doer, logger)
	}
	if u.network == nil {
		u.network = netcheck.New(cfg.Network.ProbeAddress, cfg.ProbeTimeout())
	}
	if u.progress == nil {
		u.progress = progress.LogFactory(logger)
	}
	if u.printer == nil {
		u.printer = locale.NewPrinter("en")
	}
	return u
}

// Ledger returns the ignore ledger owned by the Updater.
func (u *Updater) Ledger() *ignored.Ledger { return u.ledger }

// Rates returns the rate limit manager owned by the Updater.
func (u *Updater) Rates() *ratelimit.Manager { return u.rates }

// ItemOutcome describes what UpdateRecord did with one record.
type ItemOutcome struct {
	RecordID    int64
	Updated     bool
	RateLimited bool
	Entries     []extra.CountEntry
	Results     map[string]sources.LookupResult
}

// Databases returns the configured query order restricted to supported
// databases.
func (u *Updater) Databases(ctx context.Context) ([]string, error) {
	order, err := prefs.DatabaseOrder(ctx, u.prefs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(order))
	for _, db := range order {
		if !sources.Known(db) {
			u.logger.Debug("skipping unknown database", logging.String(logging.FieldDatabase, db))
			continue
		}
		out = append(out, db)
	}
	return out, nil
}

func (u *Updater) resolveDatabases(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}
	return u.Databases(ctx)
}

// UpdateRecord queries each database in order and rewrites the record's
// annotation when at least one count came back. Automatic runs skip pairs the
// ledger ignores; manual runs query everything.
func (u *Updater) UpdateRecord(ctx context.Context, rec *library.Record, databases []string, auto bool) (ItemOutcome, error) {
	outcome := ItemOutcome{RecordID: rec.ID, Results: map[string]sources.LookupResult{}}
	ctx = services.WithItemID(ctx, rec.ID)
	logger := logging.WithContext(ctx, u.logger)

	id, _ := identifier.FromRecord(rec)
	for _, db := range databases {
		client, ok := u.registry.Lookup(db)
		if !ok {
			continue
		}
		dbCtx := services.WithDatabase(ctx, db)
		dbLogger := logger.With(logging.String(logging.FieldDatabase, db))

		if auto {
			skip, err := u.ledger.IsIgnored(dbCtx, rec.ID, db, true)
			if err != nil {
				return outcome, services.Wrap(services.ErrTransient, "tally", "check ledger", db, err)
			}
			if skip {
				dbLogger.Debug("skipping ignored database for record")
				continue
			}
		}

		result := client.Lookup(dbCtx, id)
		outcome.Results[db] = result
		switch {
		case result.Status == sources.StatusNotFound:
			dbLogger.Debug("record not found in database")
			if err := u.ledger.MarkNotFound(dbCtx, rec.ID, db); err != nil {
				return outcome, services.Wrap(services.ErrTransient, "tally", "record not found", db, err)
			}
		case result.Status == sources.StatusNoIdentifier:
			if err := u.ledger.MarkNoIdentifier(dbCtx, rec.ID, db); err != nil {
				return outcome, services.Wrap(services.ErrTransient, "tally", "record no identifier", db, err)
			}
		case result.OK():
			if err := u.ledger.Clear(dbCtx, rec.ID, db); err != nil {
				return outcome, services.Wrap(services.ErrTransient, "tally", "clear ledger", db, err)
			}
			outcome.Entries = append(outcome.Entries, extra.CountEntry{Title: sources.Display(db), Count: result.Count})
		case result.Status == sources.StatusRateLimited:
			outcome.RateLimited = true
			dbLogger.Info("lookup rate limited", logging.String(logging.FieldEventType, "lookup_rate_limited"))
		default:
			logging.WarnWithContext(dbLogger, "citation lookup failed", "lookup_failed",
				logging.String("status", string(result.Status)),
				logging.String("message", result.Message),
				logging.String(logging.FieldErrorHint, "check network access and the database base URL"),
				logging.String(logging.FieldImpact, "count for this database not refreshed"),
			)
		}
	}

	if len(outcome.Entries) == 0 {
		logger.Debug("no valid count retrieved; record unchanged")
		return outcome, nil
	}
	merged, err := extra.Merge(rec.Field(library.FieldExtra), outcome.Entries, u.now())
	if err != nil {
		return outcome, fmt.Errorf("merge tallies: %w", err)
	}
	rec.SetField(library.FieldExtra, merged)
	if err := u.host.Save(ctx, rec); err != nil {
		return outcome, services.Wrap(services.ErrTransient, "tally", "save record", "", err)
	}
	outcome.Updated = true
	logger.Info("citation tallies updated",
		logging.Int("databases", len(outcome.Entries)),
		logging.String(logging.FieldEventType, "record_updated"),
	)
	return outcome, nil
}

// Classifier returns a staleness classifier bound to the current cutoff.
func (u *Updater) Classifier(ctx context.Context) (*staleness.Classifier, error) {
	months, err := prefs.AutoUpdateCutoff(ctx, u.prefs)
	if err != nil {
		return nil, err
	}
	return &staleness.Classifier{Ledger: u.ledger, CutoffMonths: months, Logger: u.logger}, nil
}

func (u *Updater) runContext(ctx context.Context) (context.Context, *slog.Logger) {
	ctx = services.WithRequestID(ctx, newCorrelationID())
	if err := u.rates.LoadOverrides(ctx, u.prefs); err != nil {
		logging.WarnWithContext(u.logger, "rate limit overrides unavailable", "rate_limits_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "default request spacing applies"),
		)
	}
	return ctx, logging.WithContext(ctx, u.logger)
}
