package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSources() error {
	for key, value := range map[string]string{
		"sources.crossref_base_url":        c.Sources.CrossrefBaseURL,
		"sources.doi_base_url":             c.Sources.DOIBaseURL,
		"sources.inspire_base_url":         c.Sources.InspireBaseURL,
		"sources.semanticscholar_base_url": c.Sources.SemanticScholarBaseURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) url, got %q", key, value)
		}
	}
	if c.Sources.HTTPTimeoutSeconds <= 0 {
		return errors.New("sources.http_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if err := ensureNonNegativeMap(map[string]int{
		"scheduler.start_delay_ms":              c.Scheduler.StartDelayMS,
		"scheduler.item_delay_ms":               c.Scheduler.ItemDelayMS,
		"scheduler.retry_delay_ms":              c.Scheduler.RetryDelayMS,
		"scheduler.sweep_initial_delay_seconds": c.Scheduler.SweepInitialDelaySeconds,
		"logging.retention_days":                c.Logging.RetentionDays,
	}); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"scheduler.max_retries":            c.Scheduler.MaxRetries,
		"scheduler.watch_interval_seconds": c.Scheduler.WatchIntervalSeconds,
		"scheduler.sweep_interval_hours":   c.Scheduler.SweepIntervalHours,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.ProbeAddress != "" {
		if _, _, err := net.SplitHostPort(c.Network.ProbeAddress); err != nil {
			return fmt.Errorf("network.probe_address must be host:port: %w", err)
		}
	}
	if c.Network.ProbeTimeoutSeconds <= 0 {
		return errors.New("network.probe_timeout_seconds must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
