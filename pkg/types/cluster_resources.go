package types

import (
	"encoding/json"
	"fmt"
)

// ClusterResources is the aggregate shape of a cluster: how many nodes, in how
// many groups, and the resources of each node.
type ClusterResources struct {
	nodes     int
	groups    int
	resources NodeResources
}

// NewClusterResources returns the given cluster shape, or a validation error if
// the node count does not divide evenly into the groups.
func NewClusterResources(nodes, groups int, resources NodeResources) (ClusterResources, error) {
	if nodes < 0 || groups < 0 {
		return ClusterResources{}, NewValidationErrorf("node count (%d) and group count (%d) must not be negative", nodes, groups)
	}
	if nodes > 0 && groups > 0 && nodes%groups != 0 {
		return ClusterResources{}, NewValidationErrorf("the number of nodes (%d) must be divisible by the number of groups (%d)", nodes, groups)
	}
	return ClusterResources{nodes: nodes, groups: groups, resources: resources}, nil
}

// MustClusterResources is NewClusterResources for statically known shapes. It panics on invalid input.
func MustClusterResources(nodes, groups int, resources NodeResources) ClusterResources {
	c, err := NewClusterResources(nodes, groups, resources)
	if err != nil {
		panic(err)
	}
	return c
}

// Nodes returns the total number of nodes over all groups.
func (c ClusterResources) Nodes() int { return c.nodes }

func (c ClusterResources) Groups() int { return c.groups }

func (c ClusterResources) NodeResources() NodeResources { return c.resources }

func (c ClusterResources) WithResources(resources NodeResources) ClusterResources {
	c.resources = resources
	return c
}

func (c ClusterResources) WithGroups(groups int) (ClusterResources, error) {
	return NewClusterResources(c.nodes, groups, c.resources)
}

// SmallerThan returns true if c is smaller than other in any dimension.
// Only the numeric node resource dimensions take part in the comparison.
func (c ClusterResources) SmallerThan(other ClusterResources) bool {
	if c.nodes < other.nodes {
		return true
	}
	if c.groups < other.groups {
		return true
	}
	if !c.resources.JustNumbers().Satisfies(other.resources.JustNumbers()) {
		return true
	}
	return false
}

// IsWithin returns true if c lies within the given limits, inclusive.
func (c ClusterResources) IsWithin(min, max ClusterResources) bool {
	if c.SmallerThan(min) {
		return false
	}
	if max.SmallerThan(c) {
		return false
	}
	return true
}

func (c ClusterResources) String() string {
	groups := ""
	if c.groups > 1 {
		groups = fmt.Sprintf(" (in %d groups)", c.groups)
	}
	return fmt.Sprintf("%d nodes%s with %s", c.nodes, groups, c.resources)
}

type clusterResourcesJSON struct {
	Nodes     int           `json:"nodes" yaml:"nodes"`
	Groups    int           `json:"groups" yaml:"groups"`
	Resources NodeResources `json:"resources" yaml:"resources"`
}

// MarshalJSON implements json.Marshaler.
func (c ClusterResources) MarshalJSON() ([]byte, error) {
	return json.Marshal(clusterResourcesJSON{Nodes: c.nodes, Groups: c.groups, Resources: c.resources})
}

// UnmarshalJSON implements json.Unmarshaler and applies the divisibility check.
func (c *ClusterResources) UnmarshalJSON(data []byte) error {
	var raw clusterResourcesJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewClusterResources(raw.Nodes, raw.Groups, raw.Resources)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler and applies the divisibility check.
func (c *ClusterResources) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw clusterResourcesJSON
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := NewClusterResources(raw.Nodes, raw.Groups, raw.Resources)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c ClusterResources) MarshalYAML() (interface{}, error) {
	return clusterResourcesJSON{Nodes: c.nodes, Groups: c.groups, Resources: c.resources}, nil
}
