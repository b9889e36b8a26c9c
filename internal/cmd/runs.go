package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Divas-Gupta30/kg-studio/internal/graph"
)

func newRunsCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent generate and ask runs",
		Long:  `Print the run history recorded in PostgreSQL. Requires DATABASE_URL.`,
		Args:  cobra.NoArgs,
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

			if c.Store == nil {
				return fmt.Errorf("run history requires DATABASE_URL")
			}
			runs, err := c.Store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			printRuns(cmd, runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

func printRuns(cmd *cobra.Command, runs []graph.Run) {
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	bold := painter(out, color.Bold)
	green := painter(out, color.FgGreen)
	red := painter(out, color.FgRed)
	cyan := painter(out, color.FgCyan)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, bold.Sprint("CREATED\tKIND\tSTATUS\tDURATION\tQUERY"))
	for _, r := range runs {
		status := r.Status
		switch r.Status {
		case graph.StatusSucceeded:
			status = green.Sprint(status)
		case graph.StatusCached:
			status = cyan.Sprint(status)
		default:
			status = red.Sprint(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.Kind,
			status,
			r.Duration.Round(time.Millisecond),
			truncate(r.Query, 60),
		)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
