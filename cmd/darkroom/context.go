package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"darkroom/internal/aimeta"
	"darkroom/internal/config"
	"darkroom/internal/core"
	"darkroom/internal/logging"
	"darkroom/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withService opens the store, wires the processing core, and runs fn with a
// warmed service. The store is closed when fn returns.
func (c *commandContext) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *core.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	svc := core.New(cfg, st, core.Options{
		Providers: buildProviders(cfg),
		Logger:    logger,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := svc.Warm(ctx); err != nil {
		return err
	}
	return fn(ctx, svc)
}

func buildProviders(cfg *config.Config) []aimeta.Provider {
	providers := make([]aimeta.Provider, 0, len(cfg.AI.Providers))
	for _, provider := range cfg.AI.Providers {
		if strings.TrimSpace(provider.BaseURL) == "" {
			continue
		}
		providers = append(providers, aimeta.NewHTTPProvider(provider))
	}
	return providers
}
