package graph

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Run kinds.
const (
	KindGenerate = "generate"
	KindAsk      = "ask"
)

// Run statuses.
const (
	StatusSucceeded      = "succeeded"
	StatusProcessFailed  = "process_failed"
	StatusArtifactFailed = "artifact_failed"
	StatusCached         = "cached"
)

// Run is the history record of one generate or ask invocation.
type Run struct {
	ID        string        `json:"id"`
	Kind      string        `json:"kind"`
	Query     string        `json:"query,omitempty"`
	Status    string        `json:"status"`
	Duration  time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// MarshalJSON renders the duration in milliseconds.
func (r Run) MarshalJSON() ([]byte, error) {
	type plain Run
	return json.Marshal(struct {
		plain
		DurationMS int64 `json:"duration_ms"`
	}{plain(r), r.Duration.Milliseconds()})
}

// Recorder persists runs. Implementations must tolerate concurrent calls.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// AnswerCache stores rendered answers per query for the current graph.
// Key pins a query to the graph generation current at the time of the call;
// an answer is read and written under that key, so one produced against an
// older graph never lands under a newer generation.
type AnswerCache interface {
	Key(ctx context.Context, query string) (string, error)
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, html string)
	// Invalidate drops every cached answer, called after a rebuild.
	Invalidate(ctx context.Context) error
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return StatusSucceeded
	case errors.Is(err, ErrArtifactRead):
		return StatusArtifactFailed
	default:
		return StatusProcessFailed
	}
}
