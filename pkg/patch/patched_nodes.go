package patch

import (
	"sort"

	"github.com/rzbill/provision/pkg/types"
)

// patchedNodes is the working set of one patch: the latest value of the
// target and of every child touched so far, keyed by hostname.
type patchedNodes struct {
	hostname        string
	nodes           map[string]types.Node
	fetchedChildren bool
	inventory       *inventory
}

func newPatchedNodes(target types.Node, inv *inventory) *patchedNodes {
	return &patchedNodes{
		hostname:        target.Hostname,
		nodes:           map[string]types.Node{target.Hostname: target},
		fetchedChildren: !target.Type.IsHost(),
		inventory:       inv,
	}
}

func (p *patchedNodes) node() types.Node {
	return p.nodes[p.hostname]
}

// children returns the children of the target, fetching them from the
// inventory on first use. Non-host targets have no children. The target
// itself is never one of its children.
func (p *patchedNodes) children() ([]types.Node, error) {
	if !p.fetchedChildren {
		all, err := p.inventory.nodes()
		if err != nil {
			return nil, err
		}
		for _, n := range all {
			if n.ParentHostname == p.hostname {
				p.update(n)
			}
		}
		p.fetchedChildren = true
	}

	children := make([]types.Node, 0, len(p.nodes))
	for _, hostname := range p.sortedHostnames() {
		if n := p.nodes[hostname]; hostname != p.hostname && !n.Type.IsHost() {
			children = append(children, n)
		}
	}
	return children, nil
}

func (p *patchedNodes) update(n types.Node) {
	p.nodes[n.Hostname] = n
}

// result returns the target followed by the other nodes in hostname order.
func (p *patchedNodes) result() []types.Node {
	out := []types.Node{p.node()}
	for _, hostname := range p.sortedHostnames() {
		if hostname != p.hostname {
			out = append(out, p.nodes[hostname])
		}
	}
	return out
}

func (p *patchedNodes) sortedHostnames() []string {
	hostnames := make([]string, 0, len(p.nodes))
	for hostname := range p.nodes {
		hostnames = append(hostnames, hostname)
	}
	sort.Strings(hostnames)
	return hostnames
}
