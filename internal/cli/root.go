// Package cli wires the commands: flag parsing, engine selection, logging
// setup, and exit-code mapping.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
}

// NewRootCommand creates the root command for the vexpress CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cfg, err := LoadConfig()
	if err == nil {
		opts.Verbose = cfg.Verbose
	}

	cmd := &cobra.Command{
		Use:   "vexpress",
		Short: "vexpress - filter and reshape VCF records with guest expressions",
		Long: "vexpress evaluates small scripts once per variant record to filter,\n" +
			"transform, and optionally re-render records from a VCF file.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "verbose output")

	cmd.AddCommand(NewFilterCommand(opts, cfg))

	return cmd
}
