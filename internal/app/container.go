// Package app wires configuration, logging and the graph services together.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Divas-Gupta30/kg-studio/internal/api"
	"github.com/Divas-Gupta30/kg-studio/internal/cache"
	"github.com/Divas-Gupta30/kg-studio/internal/config"
	"github.com/Divas-Gupta30/kg-studio/internal/graph"
	"github.com/Divas-Gupta30/kg-studio/internal/logging"
	"github.com/Divas-Gupta30/kg-studio/internal/runner"
	"github.com/Divas-Gupta30/kg-studio/internal/storage"
	"github.com/Divas-Gupta30/kg-studio/internal/web"
)

// Container holds the long-lived services. Store is nil when no database is
// configured.
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Cache     *cache.Answers
	Store     *storage.Store
	Generator *graph.Generator
	Asker     *graph.Asker
}

// NewContainer builds every service from cfg. A configured database that
// cannot be reached is an error; an unreachable Redis is not.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	env, err := cfg.ProcessEnv()
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("failed to prepare tool environment: %w", err)
	}

	c := &Container{Config: cfg, Logger: log}
	c.Cache = cache.Connect(ctx, cfg.Redis, log)

	deps := graph.Deps{
		Launcher: graph.NewLauncher(cfg.Graph, env),
		Runner:   runner.NewExecRunner(),
		Cache:    c.Cache,
		Logger:   log,
	}

	if cfg.Database.URL != "" {
		store, err := storage.Open(ctx, cfg.Database.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Store = store
		deps.Recorder = store
		log.Info("connected to Postgres, recording runs")
	}

	c.Generator = graph.NewGenerator(cfg.Graph, deps)
	c.Asker = graph.NewAsker(cfg.Graph, cfg.QA, deps)

	log.Info("kg-studio configured",
		zap.String("workdir", cfg.Graph.WorkDir),
		zap.String("build_script", cfg.Graph.BuildScript),
		zap.String("qa_script", cfg.QA.Script),
		zap.String("result_mode", cfg.QA.ResultMode),
		zap.String("conda_env", cfg.Graph.CondaEnv),
	)
	return c, nil
}

// Server returns the HTTP API over the container's services.
func (c *Container) Server() *api.Server {
	opts := api.Options{
		Generator: c.Generator,
		Asker:     c.Asker,
		Redis:     c.Cache,
		Static:    web.Handler(),
		Logger:    c.Logger,
	}
	// a nil *storage.Store must not become a non-nil interface
	if c.Store != nil {
		opts.Runs = c.Store
		opts.Database = c.Store
	}
	return api.NewServer(opts)
}

// Close releases connections and flushes the logger.
func (c *Container) Close() {
	if c.Cache != nil {
		c.Cache.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
}
