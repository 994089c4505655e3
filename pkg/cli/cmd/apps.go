package cmd

import (
	"fmt"
	"sort"

	"github.com/rzbill/provision/internal/server"
	"github.com/rzbill/provision/pkg/deploy"
	"github.com/rzbill/provision/pkg/types"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newAppsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "apps",
		Aliases: []string{"app", "applications"},
		Short:   "Manage the applications deployed by this config server",
	}
	cmd.AddCommand(newAppsListCmd(opts))
	cmd.AddCommand(newAppsAddCmd(opts))
	return cmd
}

func newAppsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd, opts, func(srv *server.Server) error {
				apps, err := srv.Deployer().Applications(cmd.Context())
				if err != nil {
					return err
				}
				if opts.output != outputTable {
					return printObject(cmd.OutOrStdout(), opts.output, apps)
				}

				rows := lo.Map(apps, func(a deploy.Application, _ int) []string {
					activated := "never"
					if a.ActivatedAt != nil {
						activated = a.ActivatedAt.UTC().Format("2006-01-02 15:04:05")
					}
					clusters := lo.Map(a.Clusters, func(c deploy.ClusterSpec, _ int) string { return c.ID })
					return []string{
						a.ID.String(),
						fmt.Sprint(a.Generation),
						activated,
						orDash(fmt.Sprint(clusters)),
						a.ConfigServer,
					}
				})
				return renderTable(cmd.OutOrStdout(), "No applications found",
					[]string{"APPLICATION", "GENERATION", "ACTIVATED", "CLUSTERS", "CONFIG SERVER"}, rows)
			})
		},
	}
}

type appFile struct {
	Applications []deploy.Application `yaml:"applications"`
}

func newAppsAddCmd(opts *rootOptions) *cobra.Command {
	var files []string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "add -f FILE",
		Short: "Register applications from YAML files",
		Example: `  # apps.yaml
  applications:
    - id: tenant1:music:default
      clusters:
        - id: search
          min: {nodes: 2, groups: 1, resources: {vcpu: 2, memoryGb: 8, diskGb: 50, bandwidthGbps: 1}}
          max: {nodes: 4, groups: 2, resources: {vcpu: 8, memoryGb: 32, diskGb: 200, bandwidthGbps: 1}}

  provision apps add -f apps.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readInputs(cmd.InOrStdin(), files, recursive)
			if err != nil {
				return err
			}
			var apps []deploy.Application
			names := lo.Keys(docs)
			sort.Strings(names)
			for _, name := range names {
				var file appFile
				if err := yaml.Unmarshal(docs[name], &file); err != nil {
					return types.WrapValidationError(err, "failed to parse %s", name)
				}
				apps = append(apps, file.Applications...)
			}
			if len(apps) == 0 {
				return types.NewValidationError("no applications given")
			}

			return withServer(cmd, opts, func(srv *server.Server) error {
				for _, app := range apps {
					if err := srv.Deployer().AddApplication(cmd.Context(), app); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), successLine("Added application %s", app.ID))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "YAML files or directories with the applications to add, or - for stdin")
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "search directories recursively")
	return cmd
}
