// Package runner launches external programs from an argument vector.
//
// Nothing in this package builds a shell command line: every argument reaches
// the child exactly as given, so caller-supplied text can never change which
// program runs or which flags it receives.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Command is one external program invocation.
type Command struct {
	// Path is the executable, looked up in PATH when it has no separator.
	Path string
	// Args are passed verbatim after Path.
	Args []string
	// Dir is the working directory (empty = current).
	Dir string
	// Env is the complete child environment (nil = inherit).
	Env []string
}

// Argv returns the full argument vector, program first.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// Result captures what the program produced.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner runs a Command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Path string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Path, e.Code)
}

// ExecRunner runs commands with os/exec.
// Thread-safe for concurrent use.
type ExecRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the context
	// kills the child. Zero uses 5 seconds.
	WaitDelay time.Duration
}

// NewExecRunner creates an ExecRunner with default settings.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: 5 * time.Second}
}

// Run executes cmd and waits for it. The returned Result is non-nil whenever
// the program started, including when it failed; an *ExitError is returned for
// non-zero exits and a wrapped error for spawn failures or cancellation.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("command path is required")
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%s: %w", c.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &ExitError{Path: c.Path, Code: result.ExitCode}
	}

	return nil, fmt.Errorf("failed to start %s: %w", c.Path, err)
}
