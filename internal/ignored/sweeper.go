package ignored

import (
	"context"
	"log/slog"
	"time"

	"citetally/internal/logging"
)

// Sweeper periodically removes ledger entries for vanished records.
type Sweeper struct {
	Ledger       *Ledger
	Exists       func(ctx context.Context, recordID int64) (bool, error)
	InitialDelay time.Duration
	Interval     time.Duration
	Logger       *slog.Logger
}

// Run sweeps after InitialDelay and then every Interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	logger := logging.NewComponentLogger(s.Logger, "ignored-sweeper")
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * 24 * time.Hour
	}

	timer := time.NewTimer(s.InitialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		removed, err := s.Ledger.Sweep(ctx, s.Exists)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logging.WarnWithContext(logger, "ledger sweep failed", "ledger_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check library database access"),
				logging.String(logging.FieldImpact, "stale ignored entries kept until next sweep"),
			)
		} else if removed > 0 {
			logger.Info("ledger sweep removed entries for missing records",
				logging.Int("removed", removed),
				logging.String(logging.FieldEventType, "ledger_swept"),
			)
		}
		timer.Reset(interval)
	}
}
