package config

const (
	defaultConfigPath               = "~/.config/citetally/config.toml"
	defaultDataDir                  = "~/.local/share/citetally"
	defaultLogDir                   = "~/.local/share/citetally/logs"
	defaultCrossrefBaseURL          = "https://api.crossref.org"
	defaultDOIBaseURL               = "https://doi.org"
	defaultInspireBaseURL           = "https://inspirehep.net/api"
	defaultSemanticScholarBaseURL   = "https://api.semanticscholar.org/graph/v1"
	defaultUserAgent                = "citetally/dev (mailto:citetally@localhost)"
	defaultHTTPTimeoutSeconds       = 30
	defaultStartDelayMS             = 3000
	defaultItemDelayMS              = 100
	defaultRetryDelayMS             = 5000
	defaultMaxRetries               = 3
	defaultWatchIntervalSeconds     = 10
	defaultSweepInitialDelaySeconds = 5
	defaultSweepIntervalHours       = 30 * 24
	defaultProbeAddress             = "api.crossref.org:443"
	defaultProbeTimeoutSeconds      = 5
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Sources: Sources{
			CrossrefBaseURL:        defaultCrossrefBaseURL,
			DOIBaseURL:             defaultDOIBaseURL,
			InspireBaseURL:         defaultInspireBaseURL,
			SemanticScholarBaseURL: defaultSemanticScholarBaseURL,
			UserAgent:              defaultUserAgent,
			HTTPTimeoutSeconds:     defaultHTTPTimeoutSeconds,
		},
		Scheduler: Scheduler{
			StartDelayMS:             defaultStartDelayMS,
			ItemDelayMS:              defaultItemDelayMS,
			RetryDelayMS:             defaultRetryDelayMS,
			MaxRetries:               defaultMaxRetries,
			WatchIntervalSeconds:     defaultWatchIntervalSeconds,
			SweepInitialDelaySeconds: defaultSweepInitialDelaySeconds,
			SweepIntervalHours:       defaultSweepIntervalHours,
		},
		Network: Network{
			ProbeAddress:        defaultProbeAddress,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
