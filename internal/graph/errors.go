package graph

import "errors"

var (
	// ErrProcess reports an external program that failed to start, exited
	// non-zero, or was killed.
	ErrProcess = errors.New("external process failed")

	// ErrArtifactRead reports a QA run that succeeded but whose result
	// artifact could not be read.
	ErrArtifactRead = errors.New("result artifact unreadable")
)
