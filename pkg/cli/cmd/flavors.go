package cmd

import (
	"fmt"

	"github.com/rzbill/provision/internal/config"
	"github.com/rzbill/provision/pkg/types"
	"github.com/spf13/cobra"
)

func newFlavorsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flavors",
		Short: "List the configured flavors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			catalog, err := types.LoadFlavorCatalog(cfg.FlavorsFile)
			if err != nil {
				return err
			}

			flavors := make([]types.Flavor, 0, len(catalog.Names()))
			rows := make([][]string, 0, cap(flavors))
			for _, name := range catalog.Names() {
				f, err := catalog.Flavor(name)
				if err != nil {
					return err
				}
				flavors = append(flavors, f)
				r := f.Resources
				rows = append(rows, []string{
					f.Name,
					string(f.Type),
					fmt.Sprint(r.Vcpu),
					fmt.Sprint(r.MemoryGb),
					fmt.Sprint(r.DiskGb),
					fmt.Sprint(r.BandwidthGbps),
					orDash(string(r.DiskSpeed)),
					orDash(string(r.StorageType)),
				})
			}
			if opts.output != outputTable {
				return printObject(cmd.OutOrStdout(), opts.output, flavors)
			}
			return renderTable(cmd.OutOrStdout(), "No flavors configured",
				[]string{"NAME", "TYPE", "VCPU", "MEMORY GB", "DISK GB", "BANDWIDTH GBPS", "DISK SPEED", "STORAGE"}, rows)
		},
	}
}
