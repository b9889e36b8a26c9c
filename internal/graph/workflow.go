package graph

import "context"

// State is carried through the question answering workflow.
type State struct {
	Query string

	// RunID names the run and, in unique mode, the artifact.
	RunID string

	// ArtifactPath is where the QA tool writes its answer.
	ArtifactPath string

	// Raw is the artifact content as written by the tool.
	Raw string

	// HTML is the fragment returned to the caller.
	HTML string
}

// Node is one step of a workflow.
type Node func(context.Context, *State) error

// RunWorkflow runs nodes in order and stops at the first error.
func RunWorkflow(ctx context.Context, s *State, nodes ...Node) error {
	for _, n := range nodes {
		if err := n(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
