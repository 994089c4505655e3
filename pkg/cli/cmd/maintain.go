package cmd

import (
	"fmt"

	"github.com/rzbill/provision/internal/server"
	"github.com/rzbill/provision/pkg/cli/format"
	"github.com/spf13/cobra"
)

func newMaintainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "maintain [JOB...]",
		Short: "Run maintenance jobs once",
		Long: `Run maintenance jobs once, in the foreground. Without arguments every
registered job runs. Disabled jobs are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd, opts, func(srv *server.Server) error {
				jobs := args
				if len(jobs) == 0 {
					jobs = srv.Runner().Jobs()
				}
				for _, job := range jobs {
					if !srv.JobControl().IsActive(job) {
						if opts.output == outputTable {
							fmt.Fprintln(cmd.OutOrStdout(), format.Dim("Skipped %s (disabled)", job))
						}
						continue
					}
					if err := srv.Runner().RunOnce(cmd.Context(), job); err != nil {
						return fmt.Errorf("maintenance job %s failed: %w", job, err)
					}
					if opts.output == outputTable {
						fmt.Fprintln(cmd.OutOrStdout(), successLine("Ran %s", job))
					}
				}
				if opts.output != outputTable {
					return printObject(cmd.OutOrStdout(), opts.output, srv.Runner().Stats())
				}
				return nil
			})
		},
	}
}

func successLine(f string, a ...interface{}) string {
	return format.StatusSymbol(true) + " " + fmt.Sprintf(f, a...)
}
