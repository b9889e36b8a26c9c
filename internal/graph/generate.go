package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Divas-Gupta30/kg-studio/internal/config"
	"github.com/Divas-Gupta30/kg-studio/internal/filelock"
	"github.com/Divas-Gupta30/kg-studio/internal/logging"
	"github.com/Divas-Gupta30/kg-studio/internal/runner"
)

// buildLockFile serializes builds between kg-studio processes sharing a
// working directory.
const buildLockFile = ".kg-build.lock"

// Deps are the collaborators shared by Generator and Asker. Cache and
// Recorder are optional.
type Deps struct {
	Launcher *Launcher
	Runner   runner.Runner
	Cache    AnswerCache
	Recorder Recorder
	Logger   *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Generator runs the external graph builder.
type Generator struct {
	deps    Deps
	script  string
	timeout time.Duration
	lock    *filelock.FileLock
	logger  *zap.Logger
	group   singleflight.Group
}

// NewGenerator creates a Generator for the configured build script.
func NewGenerator(cfg config.GraphConfig, deps Deps) *Generator {
	return &Generator{
		deps:    deps,
		script:  cfg.BuildScript,
		timeout: cfg.BuildTimeout,
		lock:    filelock.New(cfg.Path(buildLockFile)),
		logger:  deps.logger().Named("generator"),
	}
}

// Generate builds the knowledge graph. Callers arriving while a build is in
// flight wait for that build instead of starting another. The build itself is
// not tied to the caller's cancellation, only to the configured timeout; a
// caller whose ctx ends stops waiting and gets ErrProcess.
func (g *Generator) Generate(ctx context.Context) error {
	ch := g.group.DoChan(KindGenerate, func() (any, error) {
		return nil, g.build(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrProcess, ctx.Err())
	}
}

func (g *Generator) build(ctx context.Context) error {
	start := time.Now()
	run := Run{ID: uuid.NewString(), Kind: KindGenerate, CreatedAt: start}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	err := g.runLocked(ctx, run.ID)
	if err == nil && g.deps.Cache != nil {
		if cerr := g.deps.Cache.Invalidate(ctx); cerr != nil {
			g.logger.Warn("failed to invalidate answer cache", zap.Error(cerr))
		}
	}

	run.Duration = time.Since(start)
	run.Status = statusFor(err)
	record(ctx, g.deps.Recorder, g.logger, run)
	return err
}

func (g *Generator) runLocked(ctx context.Context, runID string) error {
	if err := g.lock.LockContext(ctx); err != nil {
		g.logger.Error("failed to acquire build lock",
			zap.String("run_id", runID), zap.String("lock", g.lock.Path()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrProcess, err)
	}
	defer func() {
		if err := g.lock.Unlock(); err != nil {
			g.logger.Warn("failed to release build lock", zap.Error(err))
		}
	}()

	cmd := g.deps.Launcher.Command(g.script)
	res, err := g.deps.Runner.Run(ctx, cmd)
	if err != nil {
		logFailure(g.logger, "graph build failed", runID, cmd, res, err)
		return fmt.Errorf("%w: %w", ErrProcess, err)
	}

	g.logger.Info("graph build finished",
		zap.String("run_id", runID),
		zap.Duration("duration", res.Duration),
	)
	g.logger.Debug("graph build output",
		zap.String("run_id", runID),
		zap.String("stdout", logging.Output(res.Stdout)),
		zap.String("stderr", logging.Output(res.Stderr)),
	)
	return nil
}

// logFailure writes the diagnostics that are never returned to HTTP callers.
func logFailure(logger *zap.Logger, msg, runID string, cmd runner.Command, res *runner.Result, err error) {
	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.Strings("argv", cmd.Argv()),
		zap.String("dir", cmd.Dir),
		zap.Error(err),
	}
	if res != nil {
		fields = append(fields,
			zap.Int("exit_code", res.ExitCode),
			zap.Duration("duration", res.Duration),
			zap.String("stdout", logging.Output(res.Stdout)),
			zap.String("stderr", logging.Output(res.Stderr)),
		)
	}
	logger.Error(msg, fields...)
}

func record(ctx context.Context, rec Recorder, logger *zap.Logger, run Run) {
	if rec == nil {
		return
	}
	if err := rec.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run", zap.String("run_id", run.ID), zap.Error(err))
	}
}
