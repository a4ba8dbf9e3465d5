package config

const (
	defaultStagingDir = "~/.local/share/darkroom/staging"
	defaultLibraryDir = "~/pictures/library"
	defaultLogDir     = "~/.local/share/darkroom/logs"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	defaultConflictThreshold = 0.995

	defaultBurstWindowSeconds    = 5
	defaultBurstProximitySeconds = 300
	defaultBurstJoinThreshold    = 0.6
	defaultBurstFilenameWeight   = 0.4
	defaultBurstTagWeight        = 0.3
	defaultBurstTimeWeight       = 0.3
	defaultBurstMinGroupSize     = 2

	defaultFaceMatchThreshold   = 0.90
	defaultFaceSuggestThreshold = 0.93
	defaultFaceMinSupport       = 3
	defaultFaceMaxSuggestions   = 3
	defaultFaceOverlapThreshold = 0.3
	defaultFaceDetectTimeout    = 10

	defaultAIRequestTimeout = 30
	defaultNamingPattern    = "{year}-{month}-{day}_{hour}-{minute}_{description}_{camera}"

	defaultWorkerConcurrency = 4
	defaultWorkerShards      = 16

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Ingest: Ingest{
			ConflictThreshold: defaultConflictThreshold,
		},
		Burst: Burst{
			WindowSeconds:          defaultBurstWindowSeconds,
			ProximityWindowSeconds: defaultBurstProximitySeconds,
			JoinThreshold:          defaultBurstJoinThreshold,
			FilenameWeight:         defaultBurstFilenameWeight,
			TagWeight:              defaultBurstTagWeight,
			TimeWeight:             defaultBurstTimeWeight,
			MinGroupSize:           defaultBurstMinGroupSize,
		},
		Faces: Faces{
			MatchThreshold:   defaultFaceMatchThreshold,
			SuggestThreshold: defaultFaceSuggestThreshold,
			MinSupport:       defaultFaceMinSupport,
			MaxSuggestions:   defaultFaceMaxSuggestions,
			OverlapThreshold: defaultFaceOverlapThreshold,
			DetectTimeout:    defaultFaceDetectTimeout,
		},
		AI: AI{
			RequestTimeout: defaultAIRequestTimeout,
			NamingPattern:  defaultNamingPattern,
		},
		Workers: Workers{
			Concurrency: defaultWorkerConcurrency,
			Shards:      defaultWorkerShards,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Ingest:         true,
			Promotion:      true,
			Review:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
