package testsupport

import (
	"path/filepath"
	"testing"

	"darkroom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithBurstWindow overrides the burst clustering windows on the test config.
func WithBurstWindow(windowSeconds, proximitySeconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Burst.WindowSeconds = windowSeconds
		cfg.Burst.ProximityWindowSeconds = proximitySeconds
	}
}

// WithNamingPattern overrides the gold naming pattern on the test config.
func WithNamingPattern(pattern string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.AI.NamingPattern = pattern
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
