package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Divas-Gupta30/kg-studio/internal/filelock"
	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

func newAskCommand(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the knowledge graph",
		Long: `Run the configured QA tool with the question and print the sanitized
HTML answer.

Examples:
  # Print the answer
  kgstudio ask "Which users answer the most Python questions?"

  # Save the answer to a file
  kgstudio ask --output answer.html "Which tags appear together most?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runAsk(ctx, cmd, *configPath, strings.Join(args, " "), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the answer to this file instead of stdout")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, configPath, query, output string) error {
	c, err := loadContainer(ctx, configPath)
	if err != nil {
		return err
	}
	defer c.Close()

	html, err := c.Asker.Ask(ctx, query)
	if err != nil {
		errOut := cmd.ErrOrStderr()
		msg := "Failed to answer the question"
		if errors.Is(err, graph.ErrArtifactRead) {
			msg = "Failed to read the response file"
		}
		painter(errOut, color.FgRed).Fprintln(errOut, msg)
		return err
	}

	out := cmd.OutOrStdout()
	if output == "" {
		fmt.Fprintln(out, html)
		return nil
	}

	if err := filelock.AtomicWrite(output, []byte(html)); err != nil {
		return fmt.Errorf("failed to write answer: %w", err)
	}
	painter(out, color.FgGreen).Fprintf(out, "Answer written to %s\n", output)
	return nil
}
