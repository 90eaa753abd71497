package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeScheduler()
	c.normalizeNetwork()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	c.Sources.CrossrefBaseURL = trimURL(c.Sources.CrossrefBaseURL, defaultCrossrefBaseURL)
	c.Sources.DOIBaseURL = trimURL(c.Sources.DOIBaseURL, defaultDOIBaseURL)
	c.Sources.InspireBaseURL = trimURL(c.Sources.InspireBaseURL, defaultInspireBaseURL)
	c.Sources.SemanticScholarBaseURL = trimURL(c.Sources.SemanticScholarBaseURL, defaultSemanticScholarBaseURL)
	c.Sources.SemanticScholarAPIKey = strings.TrimSpace(c.Sources.SemanticScholarAPIKey)
	if c.Sources.SemanticScholarAPIKey == "" {
		if value, ok := os.LookupEnv("SEMANTIC_SCHOLAR_API_KEY"); ok {
			c.Sources.SemanticScholarAPIKey = strings.TrimSpace(value)
		}
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultUserAgent
	}
	if c.Sources.HTTPTimeoutSeconds == 0 {
		c.Sources.HTTPTimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.MaxRetries == 0 {
		c.Scheduler.MaxRetries = defaultMaxRetries
	}
	if c.Scheduler.WatchIntervalSeconds == 0 {
		c.Scheduler.WatchIntervalSeconds = defaultWatchIntervalSeconds
	}
	if c.Scheduler.SweepIntervalHours == 0 {
		c.Scheduler.SweepIntervalHours = defaultSweepIntervalHours
	}
}

func (c *Config) normalizeNetwork() {
	c.Network.ProbeAddress = strings.TrimSpace(c.Network.ProbeAddress)
	if c.Network.ProbeTimeoutSeconds == 0 {
		c.Network.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimURL(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}
