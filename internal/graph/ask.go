package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Divas-Gupta30/kg-studio/internal/config"
	"github.com/Divas-Gupta30/kg-studio/internal/filelock"
	"github.com/Divas-Gupta30/kg-studio/internal/logging"
)

// sharedLockFile guards the shared artifact across kg-studio processes.
const sharedLockFile = ".kg-answer.lock"

// Asker runs the external QA tool and returns its rendered answer.
//
// In unique mode every question writes to its own artifact, named by the run
// id and passed to the tool on the command line, so concurrent questions never
// observe each other's answers. In shared mode the tool writes to one fixed
// file; questions are then admitted one at a time.
type Asker struct {
	deps     Deps
	cfg      config.QAConfig
	graph    config.GraphConfig
	renderer *Renderer
	logger   *zap.Logger

	// shared admits one question at a time in shared mode.
	shared chan struct{}
	lock   *filelock.FileLock

	newID func() string
}

// NewAsker creates an Asker.
func NewAsker(graph config.GraphConfig, cfg config.QAConfig, deps Deps) *Asker {
	return &Asker{
		deps:     deps,
		cfg:      cfg,
		graph:    graph,
		renderer: NewRenderer(cfg.ResultFormat, cfg.Sanitize),
		logger:   deps.logger().Named("asker"),
		shared:   make(chan struct{}, 1),
		lock:     filelock.New(graph.Path(sharedLockFile)),
		newID:    uuid.NewString,
	}
}

// Ask answers query. Errors wrap ErrProcess or ErrArtifactRead.
func (a *Asker) Ask(ctx context.Context, query string) (string, error) {
	start := time.Now()
	s := &State{Query: query, RunID: a.newID()}
	run := Run{ID: s.RunID, Kind: KindAsk, Query: query, CreatedAt: start}

	var cacheKey string
	if a.deps.Cache != nil {
		key, err := a.deps.Cache.Key(ctx, query)
		if err != nil {
			a.logger.Debug("answer cache unavailable", zap.Error(err))
		} else if html, ok := a.deps.Cache.Get(ctx, key); ok {
			run.Status = StatusCached
			run.Duration = time.Since(start)
			record(ctx, a.deps.Recorder, a.logger, run)
			return html, nil
		} else {
			cacheKey = key
		}
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	var err error
	if a.cfg.ResultMode == config.ResultModeShared {
		err = a.askShared(ctx, s)
	} else {
		err = a.askUnique(ctx, s)
	}

	run.Duration = time.Since(start)
	run.Status = statusFor(err)
	record(ctx, a.deps.Recorder, a.logger, run)
	if err != nil {
		return "", err
	}

	if cacheKey != "" {
		a.deps.Cache.Set(ctx, cacheKey, s.HTML)
	}
	return s.HTML, nil
}

func (a *Asker) askUnique(ctx context.Context, s *State) error {
	dir, err := filepath.Abs(a.graph.Path(a.cfg.ResultDir))
	if err != nil {
		return fmt.Errorf("%w: resolve result dir: %w", ErrProcess, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create result dir: %w", ErrProcess, err)
	}
	s.ArtifactPath = filepath.Join(dir, s.RunID+".html")
	defer func() {
		if err := os.Remove(s.ArtifactPath); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("failed to remove artifact", zap.String("path", s.ArtifactPath), zap.Error(err))
		}
	}()

	return RunWorkflow(ctx, s, a.invoke, readArtifact, a.renderer.Node())
}

func (a *Asker) askShared(ctx context.Context, s *State) error {
	select {
	case a.shared <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for shared artifact: %w", ErrProcess, ctx.Err())
	}
	defer func() { <-a.shared }()

	if err := a.lock.LockContext(ctx); err != nil {
		a.logger.Warn("failed to acquire answer lock",
			zap.String("run_id", s.RunID), zap.String("lock", a.lock.Path()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrProcess, err)
	}
	defer func() {
		if err := a.lock.Unlock(); err != nil {
			a.logger.Warn("failed to release answer lock", zap.Error(err))
		}
	}()

	s.ArtifactPath = a.graph.Path(a.cfg.ResultFile)
	// a stale answer must not be mistaken for this run's output
	if err := os.Remove(s.ArtifactPath); err != nil && !os.IsNotExist(err) {
		a.logger.Warn("failed to clear shared artifact", zap.String("path", s.ArtifactPath), zap.Error(err))
	}

	return RunWorkflow(ctx, s, a.invoke, readArtifact, a.renderer.Node())
}

// arguments returns the QA tool arguments for s. The query is always a single
// element; when a result flag is used it comes after "--" so a query that
// looks like a flag is still read as the question.
func (a *Asker) arguments(s *State) []string {
	if a.cfg.ResultMode == config.ResultModeShared {
		return []string{s.Query}
	}
	if a.cfg.ResultFlag == "" {
		return []string{s.Query, s.ArtifactPath}
	}
	return []string{a.cfg.ResultFlag, s.ArtifactPath, "--", s.Query}
}

func (a *Asker) invoke(ctx context.Context, s *State) error {
	cmd := a.deps.Launcher.Command(a.cfg.Script, a.arguments(s)...)
	res, err := a.deps.Runner.Run(ctx, cmd)
	if err != nil {
		logFailure(a.logger, "question answering failed", s.RunID, cmd, res, err)
		return fmt.Errorf("%w: %w", ErrProcess, err)
	}
	a.logger.Debug("question answered",
		zap.String("run_id", s.RunID),
		zap.Duration("duration", res.Duration),
		zap.String("stdout", logging.Output(res.Stdout)),
	)
	return nil
}

func readArtifact(_ context.Context, s *State) error {
	data, err := os.ReadFile(s.ArtifactPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactRead, err)
	}
	s.Raw = string(data)
	return nil
}
