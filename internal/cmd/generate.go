package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newGenerateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Build the knowledge graph",
		Long: `Run the configured graph builder once, in the working directory and
with the env template applied, exactly as POST /api/generate-graph does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			c, err := loadContainer(ctx, *configPath)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Generator.Generate(ctx); err != nil {
				errOut := cmd.ErrOrStderr()
				painter(errOut, color.FgRed).Fprintln(errOut, "Failed to generate knowledge graph")
				return err
			}
			out := cmd.OutOrStdout()
			painter(out, color.FgGreen).Fprintln(out, "Knowledge graph generated successfully")
			return nil
		},
	}
}
