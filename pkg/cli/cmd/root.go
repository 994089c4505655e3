// Package cmd implements the provision command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/rzbill/provision/internal/config"
	"github.com/rzbill/provision/internal/server"
	"github.com/rzbill/provision/pkg/cli/format"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/version"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	output     string
	noColor    bool
}

// NewRootCmd builds the provision command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision - node inventory and maintenance for a config server",
		Long: `Provision manages the node inventory of a config server: hosts and the
nodes they run, their states, resources and addresses, and the applications
they are allocated to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				format.EnableColor(false)
			}
			if !format.IsColorEnabled() {
				pterm.DisableColor()
			}
			switch opts.output {
			case outputTable, outputJSON, outputYAML:
				return nil
			}
			return fmt.Errorf("unknown output format %q, expected one of table, json, yaml", opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./provision.yaml or /etc/provision/provision.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "output format: table, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newNodesCmd(opts))
	rootCmd.AddCommand(newAppsCmd(opts))
	rootCmd.AddCommand(newFlavorsCmd(opts))
	rootCmd.AddCommand(newMaintainCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), format.FormatError(err))
		os.Exit(1)
	}
}

// openServer loads the configuration and opens the server state. Logs go to
// stderr so that command output stays machine readable.
func openServer(cmd *cobra.Command, opts *rootOptions) (*server.Server, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	logger, err := log.ApplyConfig(&log.Config{Level: cfg.Log.Level, Format: cfg.Log.Format},
		log.WithOutput(log.NewConsoleOutput(
			log.WithCustomWriter(cmd.ErrOrStderr()),
			log.WithoutErrorToStderr())))
	if err != nil {
		return nil, err
	}

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := srv.Open(); err != nil {
		return nil, err
	}
	return srv, nil
}

// withServer opens the server for the duration of fn.
func withServer(cmd *cobra.Command, opts *rootOptions, fn func(srv *server.Server) error) error {
	srv, err := openServer(cmd, opts)
	if err != nil {
		return err
	}
	defer srv.Close()
	return fn(srv)
}
