package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateReasoning(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		return errors.New("paths.artifact_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxQueryChars <= 0 {
		return errors.New("analysis.max_query_chars must be positive")
	}
	if c.Analysis.MaxDocumentBytes <= 0 {
		return errors.New("analysis.max_document_bytes must be positive")
	}
	if c.Analysis.StageTimeoutSeconds <= 0 {
		return errors.New("analysis.stage_timeout_seconds must be positive")
	}
	if c.Analysis.MaxRetries < 0 {
		return errors.New("analysis.max_retries must not be negative")
	}
	if c.Analysis.RetryDelayMillis < 0 {
		return errors.New("analysis.retry_delay_millis must not be negative")
	}
	return nil
}

func (c *Config) validateReasoning() error {
	if !c.Reasoning.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Reasoning.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/finlens/config.toml"
		}
		return fmt.Errorf("reasoning.api_key is required when reasoning.enabled is true. Edit %s (create with 'finlens config init')", defaultPath)
	}
	if strings.TrimSpace(c.Reasoning.Model) == "" {
		return errors.New("reasoning.model must be set when reasoning.enabled is true")
	}
	if c.Reasoning.TimeoutSeconds <= 0 {
		return errors.New("reasoning.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.Workers <= 0 {
		return errors.New("queue.workers must be positive")
	}
	if c.Queue.PollInterval <= 0 {
		return errors.New("queue.poll_interval must be positive")
	}
	if c.Queue.ErrorRetryInterval <= 0 {
		return errors.New("queue.error_retry_interval must be positive")
	}
	if c.Queue.LeaseSeconds <= 0 {
		return errors.New("queue.lease_seconds must be positive")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.MaxInline <= 0 {
		return errors.New("scheduler.max_inline must be positive")
	}
	return nil
}
