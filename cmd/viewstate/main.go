// Command viewstate inspects page-state blobs and runs data-source selects
// against SQL databases.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-viewstate/internal/telemetry"
	"github.com/goliatone/go-viewstate/pkg/config"
)

// Version is set at build time.
var Version = "0.1.0-dev"

// app carries what PersistentPreRunE prepared for the subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg       config.Config
	telemetry *telemetry.Provider
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "viewstate",
		Short:         "Inspect page state and query data sources",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.telemetry.Shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./viewstate.yaml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log state and select events to stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitConfigCmd(),
		newDecodeCmd(a),
		newQueryCmd(a),
		newStateCmd(a),
		newGridCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat("viewstate.yaml"); err == nil {
			path = "viewstate.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	provider, err := telemetry.NewProvider(ctx, telemetry.FromConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("start telemetry: %w", err)
	}
	a.telemetry = provider
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "viewstate %s\n", Version)
		},
	}
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config <path>",
		Short: "Write the default configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}
