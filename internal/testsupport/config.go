package testsupport

import (
	"path/filepath"
	"testing"

	"citetally/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Scheduler delays are zeroed and the connectivity probe is disabled so runs
// complete immediately; options can restore either.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Scheduler.StartDelayMS = 0
	cfgVal.Scheduler.ItemDelayMS = 0
	cfgVal.Scheduler.RetryDelayMS = 0
	cfgVal.Scheduler.SweepInitialDelaySeconds = 0
	cfgVal.Network.ProbeAddress = ""
	cfgVal.Sources.HTTPTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSourceURL points every citation database endpoint at one test server.
func WithSourceURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources.CrossrefBaseURL = baseURL + "/crossref"
		b.cfg.Sources.DOIBaseURL = baseURL + "/doi"
		b.cfg.Sources.InspireBaseURL = baseURL + "/inspire"
		b.cfg.Sources.SemanticScholarBaseURL = baseURL + "/s2"
	}
}

// WithMaxRetries overrides the automatic run retry ceiling.
func WithMaxRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.MaxRetries = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
