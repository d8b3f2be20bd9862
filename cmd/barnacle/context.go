package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulibrary/barnacle/internal/config"
	"github.com/pulibrary/barnacle/internal/fetcher"
	"github.com/pulibrary/barnacle/internal/iiif"
	"github.com/pulibrary/barnacle/internal/imagecache"
	"github.com/pulibrary/barnacle/internal/logging"
	"github.com/pulibrary/barnacle/internal/ocr"
	"github.com/pulibrary/barnacle/internal/pipeline"
	"github.com/pulibrary/barnacle/internal/robots"
	"github.com/pulibrary/barnacle/pkg/types"
)

// commandContext lazily loads configuration and builds shared collaborators,
// so commands that never touch the network (image-url) pay no setup cost.
type commandContext struct {
	configFlag *string

	cfg    *config.Config
	logger *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if *c.configFlag == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("default config: %w", err)
		}
		c.cfg = &cfg
		return c.cfg, nil
	}
	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return c.cfg, nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return c.logger, nil
}

// buildTraverser constructs a traverser backed by the manifest HTTP client.
func (c *commandContext) buildTraverser() (*iiif.Traverser, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Headers:      cfg.Fetch.Headers,
		Timeout:      cfg.Fetch.ManifestTimeout.Duration,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ProxyURL:     cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, err
	}
	return iiif.NewTraverser(client, cfg.IIIF), nil
}

// buildWorker wires the full per-manifest pipeline: traverser, image client,
// cache, politeness controls and the recognition engine. Model resolution
// happens here, once, before any page work starts.
func (c *commandContext) buildWorker(ctx context.Context) (*pipeline.Worker, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	traverser, err := c.buildTraverser()
	if err != nil {
		return nil, err
	}

	imageClient, err := fetcher.New(fetcher.Options{
		UserAgent:    cfg.Fetch.UserAgent,
		Headers:      cfg.Fetch.Headers,
		Timeout:      cfg.Fetch.ImageTimeout.Duration,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		ProxyURL:     cfg.Fetch.ProxyURL,
	})
	if err != nil {
		return nil, err
	}

	cache, err := imagecache.New(cfg.Cache.Dir)
	if err != nil {
		return nil, err
	}

	engine, resolved, err := ocr.FromConfig(ctx, cfg.Engine)
	if err != nil {
		return nil, &pipeline.ConfigurationError{Err: err}
	}
	engineCfg := types.EngineConfiguration{
		Engine:        cfg.Engine.Backend,
		ModelRef:      cfg.Engine.Model,
		ModelResolved: resolved,
	}
	logger.Info("engine ready", "backend", engineCfg.Engine, "model", engineCfg.ModelResolved)

	var limiter *fetcher.HostLimiter
	if cfg.Fetch.PerHostDelay.Duration > 0 || cfg.Fetch.RateLimit.Enabled() {
		limiter = fetcher.NewHostLimiter(cfg.Fetch.PerHostDelay.Duration, fetcher.RateLimiterSettings{
			Requests: cfg.Fetch.RateLimit.Requests,
			Window:   cfg.Fetch.RateLimit.Window.Duration,
		})
	}

	var robotsAgent *robots.Agent
	if cfg.Robots.Respect {
		robotsAgent = robots.NewAgent(cfg.Robots, imageClient.Client())
	}

	return pipeline.NewWorker(pipeline.WorkerOptions{
		Traverser:      traverser,
		Engine:         engine,
		EngineCfg:      engineCfg,
		Fetcher:        imageClient,
		Cache:          cache,
		Limiter:        limiter,
		Robots:         robotsAgent,
		Logger:         logger,
		MaxPages:       cfg.Limits.MaxPages,
		RecordFailures: cfg.Output.RecordFailures,
		Provenance:     cfg.Provenance,
	})
}
