package graph

import (
	"bytes"
	"context"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/Divas-Gupta30/kg-studio/internal/config"
)

// Renderer turns a raw artifact into the HTML fragment sent to the browser.
// Answers are markup from a semi-trusted program and are inserted into the
// page unescaped, so the sanitizer is the only barrier against injected
// script; disable it only when the QA tool is fully trusted.
type Renderer struct {
	format   string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer creates a Renderer for the given result format. sanitize
// enables the user-generated-content allow-list policy.
func NewRenderer(format string, sanitize bool) *Renderer {
	r := &Renderer{
		format:   format,
		markdown: goldmark.New(),
	}
	if sanitize {
		r.policy = bluemonday.UGCPolicy()
	}
	return r
}

// Render converts raw according to the configured format and sanitizes it.
func (r *Renderer) Render(raw string) (string, error) {
	html := raw
	if r.format == config.FormatMarkdown {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(raw), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		html = buf.String()
	}
	if r.policy != nil {
		html = r.policy.Sanitize(html)
	}
	return html, nil
}

// Node adapts the renderer to the workflow.
func (r *Renderer) Node() Node {
	return func(_ context.Context, s *State) error {
		html, err := r.Render(s.Raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrArtifactRead, err)
		}
		s.HTML = html
		return nil
	}
}
