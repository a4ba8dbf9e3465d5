package config

import "strings"

// normalize expands paths and fills unset values with defaults.
func (c *Config) normalize() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	if c.Ingest.ConflictThreshold == 0 {
		c.Ingest.ConflictThreshold = defaultConflictThreshold
	}

	if c.Burst.WindowSeconds == 0 {
		c.Burst.WindowSeconds = defaultBurstWindowSeconds
	}
	if c.Burst.ProximityWindowSeconds == 0 {
		c.Burst.ProximityWindowSeconds = defaultBurstProximitySeconds
	}
	if c.Burst.JoinThreshold == 0 {
		c.Burst.JoinThreshold = defaultBurstJoinThreshold
	}
	if c.Burst.FilenameWeight == 0 && c.Burst.TagWeight == 0 && c.Burst.TimeWeight == 0 {
		c.Burst.FilenameWeight = defaultBurstFilenameWeight
		c.Burst.TagWeight = defaultBurstTagWeight
		c.Burst.TimeWeight = defaultBurstTimeWeight
	}
	if c.Burst.MinGroupSize == 0 {
		c.Burst.MinGroupSize = defaultBurstMinGroupSize
	}

	if c.Faces.MatchThreshold == 0 {
		c.Faces.MatchThreshold = defaultFaceMatchThreshold
	}
	if c.Faces.SuggestThreshold == 0 {
		c.Faces.SuggestThreshold = defaultFaceSuggestThreshold
	}
	if c.Faces.MinSupport == 0 {
		c.Faces.MinSupport = defaultFaceMinSupport
	}
	if c.Faces.MaxSuggestions == 0 {
		c.Faces.MaxSuggestions = defaultFaceMaxSuggestions
	}
	if c.Faces.OverlapThreshold == 0 {
		c.Faces.OverlapThreshold = defaultFaceOverlapThreshold
	}

	if c.AI.RequestTimeout == 0 {
		c.AI.RequestTimeout = defaultAIRequestTimeout
	}
	if strings.TrimSpace(c.AI.NamingPattern) == "" {
		c.AI.NamingPattern = defaultNamingPattern
	}

	if c.Workers.Concurrency == 0 {
		c.Workers.Concurrency = defaultWorkerConcurrency
	}
	if c.Workers.Shards == 0 {
		c.Workers.Shards = defaultWorkerShards
	}

	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}

	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
