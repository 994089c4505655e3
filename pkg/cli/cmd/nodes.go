package cmd

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/rzbill/provision/internal/server"
	"github.com/rzbill/provision/pkg/types"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

func newNodesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"node"},
		Short:   "Inspect and change the node inventory",
	}
	cmd.AddCommand(newNodesListCmd(opts))
	cmd.AddCommand(newNodesGetCmd(opts))
	cmd.AddCommand(newNodesAddCmd(opts))
	cmd.AddCommand(newNodesPatchCmd(opts))
	cmd.AddCommand(newNodesSetStateCmd(opts))
	return cmd
}

func newNodesListCmd(opts *rootOptions) *cobra.Command {
	var states []string
	var app string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes, optionally filtered by state or owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wanted := make([]types.NodeState, 0, len(states))
			for _, s := range states {
				state, err := types.ParseNodeState(s)
				if err != nil {
					return err
				}
				wanted = append(wanted, state)
			}

			return withServer(cmd, opts, func(srv *server.Server) error {
				var list []types.Node
				var err error
				if app != "" {
					id, perr := types.ParseApplicationID(app)
					if perr != nil {
						return perr
					}
					list, err = srv.Nodes().NodesOf(cmd.Context(), id, wanted...)
				} else {
					list, err = srv.Nodes().Nodes(cmd.Context(), wanted...)
				}
				if err != nil {
					return err
				}
				return printNodes(cmd, opts, list)
			})
		},
	}
	cmd.Flags().StringSliceVar(&states, "state", nil, "only list nodes in these states")
	cmd.Flags().StringVar(&app, "app", "", "only list nodes owned by this application (tenant:application:instance)")
	return cmd
}

func newNodesGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get HOSTNAME",
		Short: "Show a single node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(cmd, opts, func(srv *server.Server) error {
				n, err := srv.Nodes().Node(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.output == outputTable {
					return printObject(cmd.OutOrStdout(), outputYAML, n)
				}
				return printObject(cmd.OutOrStdout(), opts.output, n)
			})
		},
	}
}

func printNodes(cmd *cobra.Command, opts *rootOptions, list []types.Node) error {
	if opts.output != outputTable {
		return printObject(cmd.OutOrStdout(), opts.output, list)
	}
	rows := lo.Map(list, func(n types.Node, _ int) []string {
		owner, cluster := "-", "-"
		if n.Allocation != nil {
			owner = n.Allocation.Owner.String()
			cluster = fmt.Sprintf("%s/%d", n.Allocation.Membership.Cluster, n.Allocation.Membership.Group)
		}
		return []string{
			n.Hostname,
			string(n.Type),
			string(n.State),
			n.Flavor.Name,
			owner,
			cluster,
			orDash(n.ParentHostname),
		}
	})
	return renderTable(cmd.OutOrStdout(), "No nodes found",
		[]string{"HOSTNAME", "TYPE", "STATE", "FLAVOR", "OWNER", "CLUSTER", "PARENT"}, rows)
}

// nodeSpec is the YAML form operators use to add nodes.
type nodeSpec struct {
	Hostname              string               `yaml:"hostname"`
	ID                    string               `yaml:"id"`
	Type                  string               `yaml:"type"`
	Flavor                string               `yaml:"flavor"`
	Resources             *types.NodeResources `yaml:"resources"`
	Parent                string               `yaml:"parent"`
	IPAddresses           []string             `yaml:"ipAddresses"`
	AdditionalIPAddresses []string             `yaml:"additionalIpAddresses"`
	State                 string               `yaml:"state"`
	Owner                 string               `yaml:"owner"`
	Cluster               string               `yaml:"cluster"`
	Group                 int                  `yaml:"group"`
	Index                 int                  `yaml:"index"`
	ModelName             string               `yaml:"modelName"`
	ReservedTo            string               `yaml:"reservedTo"`
	SwitchHostname        string               `yaml:"switchHostname"`
}

type nodeFile struct {
	Nodes []nodeSpec `yaml:"nodes"`
}

func (s nodeSpec) toNode(flavors types.FlavorResolver) (types.Node, error) {
	nodeType, err := types.ParseNodeType(s.Type)
	if err != nil {
		return types.Node{}, err
	}
	state := types.NodeStateProvisioned
	if s.State != "" {
		if state, err = types.ParseNodeState(s.State); err != nil {
			return types.Node{}, err
		}
	}

	var flavor types.Flavor
	switch {
	case s.Flavor != "":
		if flavor, err = flavors.Flavor(s.Flavor); err != nil {
			return types.Node{}, err
		}
		if s.Resources != nil {
			flavor = flavor.With(*s.Resources)
		}
	case s.Resources != nil:
		flavor = types.Flavor{Name: "custom", Type: types.FlavorTypeContainer, Resources: *s.Resources}
	default:
		return types.Node{}, types.NewValidationErrorf("node %s needs a flavor or resources", s.Hostname)
	}

	ipConfig, err := types.NewIPConfig(s.IPAddresses, s.AdditionalIPAddresses)
	if err != nil {
		return types.Node{}, types.WrapValidationError(err, "node %s", s.Hostname)
	}

	n := types.Node{
		Hostname:       s.Hostname,
		ID:             s.ID,
		ParentHostname: s.Parent,
		Type:           nodeType,
		Flavor:         flavor,
		State:          state,
		IPConfig:       ipConfig,
		ModelName:      s.ModelName,
		ReservedTo:     s.ReservedTo,
		SwitchHostname: s.SwitchHostname,
	}
	if s.Owner != "" {
		owner, err := types.ParseApplicationID(s.Owner)
		if err != nil {
			return types.Node{}, err
		}
		n.Allocation = &types.Allocation{
			Owner:              owner,
			Membership:         types.Membership{Cluster: s.Cluster, Group: s.Group, Index: s.Index},
			RequestedResources: flavor.Resources,
		}
	}
	return n, nil
}

func newNodesAddCmd(opts *rootOptions) *cobra.Command {
	var files []string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "add -f FILE",
		Short: "Add nodes described in YAML files",
		Example: `  # nodes.yaml
  nodes:
    - hostname: host1.example.com
      type: host
      flavor: large
      ipAddresses: [10.0.0.1]
      additionalIpAddresses: [10.0.1.1, 10.0.1.2]

  provision nodes add -f nodes.yaml
  provision nodes add -f inventory/ -R`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readInputs(cmd.InOrStdin(), files, recursive)
			if err != nil {
				return err
			}
			var specs []nodeSpec
			names := lo.Keys(docs)
			sort.Strings(names)
			for _, name := range names {
				var file nodeFile
				if err := yaml.Unmarshal(docs[name], &file); err != nil {
					return types.WrapValidationError(err, "failed to parse %s", name)
				}
				specs = append(specs, file.Nodes...)
			}
			if len(specs) == 0 {
				return types.NewValidationError("no nodes given")
			}

			return withServer(cmd, opts, func(srv *server.Server) error {
				list := make([]types.Node, 0, len(specs))
				for _, s := range specs {
					n, err := s.toNode(srv.Flavors())
					if err != nil {
						return err
					}
					list = append(list, n)
				}
				if err := srv.Nodes().AddNodes(cmd.Context(), list...); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successLine("Added %d node(s)", len(list)))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "YAML files or directories with the nodes to add, or - for stdin")
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "search directories recursively")
	return cmd
}

func newNodesPatchCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "patch HOSTNAME -f FILE",
		Short: "Apply a JSON patch document to a node",
		Long: `Apply a JSON patch document to a node. The document may contain comments
and trailing commas. Fields set to null are cleared.`,
		Example: `  echo '{"currentRebootGeneration": 3, "reports": {"dropped": null}}' | provision nodes patch host1 -f -`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			return withServer(cmd, opts, func(srv *server.Server) error {
				patched, err := srv.Nodes().Patch(cmd.Context(), args[0], bytes.NewReader(jsonc.ToJSON(data)))
				if err != nil {
					return err
				}
				if opts.output != outputTable {
					return printObject(cmd.OutOrStdout(), opts.output, patched)
				}
				for _, n := range patched {
					fmt.Fprintln(cmd.OutOrStdout(), successLine("Patched %s", n.Hostname))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the patch, or - for stdin")
	return cmd
}

func newNodesSetStateCmd(opts *rootOptions) *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "set-state HOSTNAME STATE",
		Short: "Move a node to another state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := types.ParseNodeState(args[1])
			if err != nil {
				return err
			}

			return withServer(cmd, opts, func(srv *server.Server) error {
				n, err := srv.Nodes().SetState(cmd.Context(), args[0], state, types.Agent(agent))
				if err != nil {
					return err
				}
				if opts.output != outputTable {
					return printObject(cmd.OutOrStdout(), opts.output, n)
				}
				fmt.Fprintln(cmd.OutOrStdout(), successLine("Moved %s to %s", n.Hostname, n.State))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", string(types.AgentOperator), "agent recorded in the node history")
	return cmd
}
