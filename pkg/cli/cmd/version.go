package cmd

import (
	"fmt"

	"github.com/rzbill/provision/pkg/version"
	"github.com/spf13/cobra"
)

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the provision version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable {
				return printObject(cmd.OutOrStdout(), opts.output, version.Map())
			}
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
			return nil
		},
	}
}
