package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

// fakeTools installs a stand-in interpreter that "runs" kg.py and qa.py.
// qa.py is called as: qa.py --output <path> -- <query>.
func fakeTools(t *testing.T, script string) string {
	t.Helper()
	workdir := t.TempDir()
	python := filepath.Join(t.TempDir(), "python")
	require.NoError(t, os.WriteFile(python, []byte("#!/bin/sh\n"+script), 0755))

	t.Setenv("KG_WORKDIR", workdir)
	t.Setenv("KG_PYTHON", python)
	t.Setenv("KG_ENV_TEMPLATE", "")
	t.Setenv("KG_CONDA_ENV", "")
	t.Setenv("KG_RESULT_MODE", "unique")
	t.Setenv("KG_RESULT_FLAG", "--output")
	t.Setenv("REDIS_URL", "127.0.0.1:1")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return workdir
}

const answeringTool = `if [ "$1" = "qa.py" ]; then printf '<b>%s</b>' "$5" > "$3"; fi
exit 0
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "kgstudio", cmd.Use)

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "generate", "ask", "runs"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "knowledge graph")
}

func TestGenerateCommand(t *testing.T) {
	workdir := fakeTools(t, `[ "$1" = "kg.py" ] && touch built; exit 0
`)

	out, _, err := execute(t, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge graph generated successfully")
	assert.FileExists(t, filepath.Join(workdir, "built"), "builder runs in the working directory")
}

func TestGenerateCommandFailure(t *testing.T) {
	fakeTools(t, `echo "boom" >&2; exit 3
`)

	_, stderr, err := execute(t, "generate")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrProcess)
	assert.Contains(t, stderr, "Failed to generate knowledge graph")
}

func TestAskCommand(t *testing.T) {
	fakeTools(t, answeringTool)

	out, _, err := execute(t, "ask", "who", "asks; most?")
	require.NoError(t, err)
	assert.Equal(t, "<b>who asks; most?</b>\n", out)
}

func TestAskCommandOutputFile(t *testing.T) {
	fakeTools(t, answeringTool)
	dest := filepath.Join(t.TempDir(), "answers", "answer.html")

	out, _, err := execute(t, "ask", "--output", dest, "$(id)")
	require.NoError(t, err)
	assert.Contains(t, out, "Answer written to")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<b>$(id)</b>", string(data))
}

func TestAskCommandMissingArtifact(t *testing.T) {
	fakeTools(t, "exit 0\n")

	_, stderr, err := execute(t, "ask", "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrArtifactRead)
	assert.Contains(t, stderr, "Failed to read the response file")
}

func TestAskCommandRequiresQuestion(t *testing.T) {
	fakeTools(t, answeringTool)

	_, _, err := execute(t, "ask")
	assert.Error(t, err)
}

func TestRunsCommandRequiresDatabase(t *testing.T) {
	fakeTools(t, answeringTool)

	_, _, err := execute(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)

	printRuns(cmd, []graph.Run{
		{ID: "1", Kind: graph.KindAsk, Query: "who?", Status: graph.StatusCached, Duration: 3 * time.Millisecond, CreatedAt: time.Now()},
		{ID: "2", Kind: graph.KindGenerate, Status: graph.StatusProcessFailed, Duration: time.Minute, CreatedAt: time.Now()},
	})

	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "cached")
	assert.Contains(t, out, "process_failed")
	assert.Contains(t, out, "who?")
	assert.NotContains(t, out, "\x1b[", "no color codes outside a terminal")
}

func TestPrintRunsEmpty(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&buf)

	printRuns(cmd, nil)
	assert.Equal(t, "No runs recorded\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "héll...", truncate("héllo wörld", 7))
}
