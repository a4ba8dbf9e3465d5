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
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateBurst(); err != nil {
		return err
	}
	if err := c.validateFaces(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateIngest() error {
	if c.Ingest.ConflictThreshold <= 0 || c.Ingest.ConflictThreshold > 1 {
		return errors.New("ingest.conflict_threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateBurst() error {
	if c.Burst.WindowSeconds <= 0 {
		return errors.New("burst.window_seconds must be positive")
	}
	if c.Burst.ProximityWindowSeconds < c.Burst.WindowSeconds {
		return errors.New("burst.proximity_window_seconds must be at least burst.window_seconds")
	}
	if c.Burst.JoinThreshold <= 0 || c.Burst.JoinThreshold > 1 {
		return errors.New("burst.join_threshold must be in (0, 1]")
	}
	sum := c.Burst.FilenameWeight + c.Burst.TagWeight + c.Burst.TimeWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("burst weights must sum to 1.0, got %.3f", sum)
	}
	if c.Burst.MinGroupSize < 2 {
		return errors.New("burst.min_group_size must be at least 2")
	}
	return nil
}

func (c *Config) validateFaces() error {
	for key, value := range map[string]float64{
		"faces.match_threshold":   c.Faces.MatchThreshold,
		"faces.suggest_threshold": c.Faces.SuggestThreshold,
		"faces.overlap_threshold": c.Faces.OverlapThreshold,
	} {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1]", key)
		}
	}
	if c.Faces.SuggestThreshold < c.Faces.MatchThreshold {
		return errors.New("faces.suggest_threshold must be at least faces.match_threshold")
	}
	if c.Faces.MinSupport < 1 {
		return errors.New("faces.min_support must be at least 1")
	}
	if c.Faces.MaxSuggestions < 1 {
		return errors.New("faces.max_suggestions must be at least 1")
	}
	if c.Faces.DetectTimeout <= 0 {
		return errors.New("faces.detect_timeout must be positive")
	}
	return nil
}

func (c *Config) validateAI() error {
	if c.AI.RequestTimeout <= 0 {
		return errors.New("ai.request_timeout must be positive (seconds)")
	}
	for i, provider := range c.AI.Providers {
		if strings.TrimSpace(provider.Name) == "" {
			return fmt.Errorf("ai.providers[%d].name must be set", i)
		}
		if strings.TrimSpace(provider.BaseURL) == "" {
			return fmt.Errorf("ai.providers[%d].base_url must be set", i)
		}
	}
	if strings.TrimSpace(c.AI.NamingPattern) == "" {
		return errors.New("ai.naming_pattern must be set")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Concurrency <= 0 {
		return errors.New("workers.concurrency must be positive")
	}
	if c.Workers.Shards <= 0 {
		return errors.New("workers.shards must be positive")
	}
	return nil
}
