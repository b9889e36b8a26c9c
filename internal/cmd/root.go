// Package cmd implements the kgstudio command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Divas-Gupta30/kg-studio/internal/app"
	"github.com/Divas-Gupta30/kg-studio/internal/config"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for kgstudio
func NewRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "kgstudio",
		Short: "Knowledge graph generation and question answering",
		Long: `kgstudio builds a knowledge graph by running an external graph builder
and answers natural-language questions by running an external QA tool.

The server exposes both over HTTP together with a browser form; the
generate and ask commands run the same code directly from a terminal.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "kgstudio.yaml", "Path to the YAML config file")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newGenerateCommand(&configPath))
	cmd.AddCommand(newAskCommand(&configPath))
	cmd.AddCommand(newRunsCommand(&configPath))

	return cmd
}

// loadContainer reads .env, the config file and the environment, then builds
// the services.
func loadContainer(ctx context.Context, configPath string) (*app.Container, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.NewContainer(ctx, cfg)
}
