package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Divas-Gupta30/kg-studio/internal/config"
	"github.com/Divas-Gupta30/kg-studio/internal/runner"
)

// fakeRunner records every command and delegates behavior to fn.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runner.Command
	fn    func(ctx context.Context, cmd runner.Command) (*runner.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()
	if f.fn == nil {
		return &runner.Result{}, nil
	}
	return f.fn(ctx, cmd)
}

func (f *fakeRunner) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// fakeCache is an in-memory AnswerCache keyed by generation and query.
type fakeCache struct {
	mu          sync.Mutex
	answers     map[string]string
	generation  int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{answers: make(map[string]string)}
}

func (c *fakeCache) Key(_ context.Context, q string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d:%s", c.generation, q), nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	html, ok := c.answers[key]
	return html, ok
}

func (c *fakeCache) Set(_ context.Context, key, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers[key] = html
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidated++
	return nil
}

// lookup reads the answer cached for q under the current generation.
func (c *fakeCache) lookup(q string) (string, bool) {
	key, _ := c.Key(context.Background(), q)
	return c.Get(context.Background(), key)
}

// fakeRecorder collects runs.
type fakeRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (r *fakeRecorder) Record(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) Runs() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Run(nil), r.runs...)
}

type fixture struct {
	graph  config.GraphConfig
	qa     config.QAConfig
	runner *fakeRunner
	logs   *observer.ObservedLogs
	deps   Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Graph.WorkDir = t.TempDir()
	cfg.Graph.EnvTemplate = ""

	core, logs := observer.New(zapcore.DebugLevel)
	fr := &fakeRunner{}
	return &fixture{
		graph:  cfg.Graph,
		qa:     cfg.QA,
		runner: fr,
		logs:   logs,
		deps: Deps{
			Launcher: NewLauncher(cfg.Graph, []string{"PATH=/usr/bin"}),
			Runner:   fr,
			Logger:   zap.New(core),
		},
	}
}

func (f *fixture) asker() *Asker {
	return NewAsker(f.graph, f.qa, f.deps)
}

func (f *fixture) generator() *Generator {
	return NewGenerator(f.graph, f.deps)
}

// artifactPath extracts the artifact path the QA tool was told to write.
func artifactPath(t *testing.T, cmd runner.Command) string {
	t.Helper()
	for i, a := range cmd.Args {
		if a == "--output" && i+1 < len(cmd.Args) {
			return cmd.Args[i+1]
		}
	}
	t.Fatalf("no --output in %v", cmd.Args)
	return ""
}

// queryArg returns the last argument, where the query always sits.
func queryArg(cmd runner.Command) string {
	return cmd.Args[len(cmd.Args)-1]
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
