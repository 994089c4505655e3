package types

import (
	"fmt"
	"time"
)

// NodeType is the role of a node.
type NodeType string

const (
	NodeTypeHost       NodeType = "host"
	NodeTypeTenant     NodeType = "tenant"
	NodeTypeProxy      NodeType = "proxy"
	NodeTypeProxyHost  NodeType = "proxyhost"
	NodeTypeConfig     NodeType = "config"
	NodeTypeConfigHost NodeType = "confighost"
)

// IsHost returns true for node types that run child nodes.
func (t NodeType) IsHost() bool {
	switch t {
	case NodeTypeHost, NodeTypeProxyHost, NodeTypeConfigHost:
		return true
	}
	return false
}

// ParseNodeType parses a node type name.
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case NodeTypeHost, NodeTypeTenant, NodeTypeProxy, NodeTypeProxyHost, NodeTypeConfig, NodeTypeConfigHost:
		return t, nil
	}
	return "", NewValidationErrorf("unknown node type '%s'", s)
}

// NodeState is the lifecycle state of a node.
type NodeState string

const (
	NodeStateProvisioned   NodeState = "provisioned"
	NodeStateReady         NodeState = "ready"
	NodeStateReserved      NodeState = "reserved"
	NodeStateActive        NodeState = "active"
	NodeStateInactive      NodeState = "inactive"
	NodeStateDirty         NodeState = "dirty"
	NodeStateFailed        NodeState = "failed"
	NodeStateParked        NodeState = "parked"
	NodeStateDeprovisioned NodeState = "deprovisioned"
)

// AllNodeStates lists every node state.
var AllNodeStates = []NodeState{
	NodeStateProvisioned, NodeStateReady, NodeStateReserved, NodeStateActive, NodeStateInactive,
	NodeStateDirty, NodeStateFailed, NodeStateParked, NodeStateDeprovisioned,
}

// ParseNodeState parses a node state name.
func ParseNodeState(s string) (NodeState, error) {
	for _, state := range AllNodeStates {
		if string(state) == s {
			return state, nil
		}
	}
	return "", NewValidationErrorf("unknown node state '%s'", s)
}

// IsAllocated returns true for states in which a node may carry an allocation.
func (s NodeState) IsAllocated() bool {
	switch s {
	case NodeStateReserved, NodeStateActive, NodeStateInactive, NodeStateFailed, NodeStateParked:
		return true
	}
	return false
}

// RequiresAllocation returns true for states in which a node must carry an allocation.
func (s NodeState) RequiresAllocation() bool {
	switch s {
	case NodeStateReserved, NodeStateActive, NodeStateInactive:
		return true
	}
	return false
}

var stateEvents = map[NodeState]EventType{
	NodeStateProvisioned:   EventProvisioned,
	NodeStateReady:         EventReadied,
	NodeStateReserved:      EventReserved,
	NodeStateActive:        EventActivated,
	NodeStateInactive:      EventDeactivated,
	NodeStateDirty:         EventDirtied,
	NodeStateFailed:        EventFailed,
	NodeStateParked:        EventParked,
	NodeStateDeprovisioned: EventDeprovisioned,
}

// Generation is a wanted/current counter pair.
type Generation struct {
	Wanted  int64 `json:"wanted" yaml:"wanted"`
	Current int64 `json:"current" yaml:"current"`
}

// OsVersion is the wanted and running OS version of a node.
type OsVersion struct {
	Current string `json:"current,omitempty" yaml:"current,omitempty"`
	Wanted  string `json:"wanted,omitempty" yaml:"wanted,omitempty"`
}

// Status is the reported and wanted runtime status of a node.
type Status struct {
	Reboot             Generation `json:"reboot" yaml:"reboot"`
	VespaVersion       string     `json:"vespaVersion,omitempty" yaml:"vespaVersion,omitempty"`
	DockerImage        string     `json:"dockerImage,omitempty" yaml:"dockerImage,omitempty"`
	OsVersion          OsVersion  `json:"osVersion" yaml:"osVersion"`
	FailCount          int        `json:"failCount" yaml:"failCount"`
	WantToRetire       bool       `json:"wantToRetire" yaml:"wantToRetire"`
	WantToDeprovision  bool       `json:"wantToDeprovision" yaml:"wantToDeprovision"`
	FirmwareVerifiedAt *time.Time `json:"firmwareVerifiedAt,omitempty" yaml:"firmwareVerifiedAt,omitempty"`
}

// Membership places an allocated node in a cluster of its owner.
type Membership struct {
	Cluster string `json:"cluster" yaml:"cluster"`
	Group   int    `json:"group" yaml:"group"`
	Index   int    `json:"index" yaml:"index"`
	Retired bool   `json:"retired" yaml:"retired"`
}

// Allocation records which application owns a node and what it asked for.
type Allocation struct {
	Owner              ApplicationID `json:"owner" yaml:"owner"`
	Membership         Membership    `json:"membership" yaml:"membership"`
	RequestedResources NodeResources `json:"requestedResources" yaml:"requestedResources"`
	Restart            Generation    `json:"restart" yaml:"restart"`
}

// WithRequestedResources returns a copy with the requested resources replaced.
func (a Allocation) WithRequestedResources(r NodeResources) Allocation {
	a.RequestedResources = r
	return a
}

// WithCurrentRestartGeneration returns a copy with the current restart generation replaced.
func (a Allocation) WithCurrentRestartGeneration(gen int64) Allocation {
	a.Restart.Current = gen
	return a
}

// Node is a machine in the inventory. Node values are never modified in
// place; every With method returns an updated copy.
type Node struct {
	Hostname       string      `json:"hostname" yaml:"hostname"`
	ID             string      `json:"id,omitempty" yaml:"id,omitempty"`
	ParentHostname string      `json:"parentHostname,omitempty" yaml:"parentHostname,omitempty"`
	Type           NodeType    `json:"type" yaml:"type"`
	Flavor         Flavor      `json:"flavor" yaml:"flavor"`
	Status         Status      `json:"status" yaml:"status"`
	State          NodeState   `json:"state" yaml:"state"`
	Allocation     *Allocation `json:"allocation,omitempty" yaml:"allocation,omitempty"`
	IPConfig       IPConfig    `json:"ipConfig" yaml:"ipConfig"`
	Reports        Reports     `json:"reports,omitempty" yaml:"reports,omitempty"`
	History        History     `json:"history,omitempty" yaml:"history,omitempty"`
	ModelName      string      `json:"modelName,omitempty" yaml:"modelName,omitempty"`
	ReservedTo     string      `json:"reservedTo,omitempty" yaml:"reservedTo,omitempty"`
	SwitchHostname string      `json:"switchHostname,omitempty" yaml:"switchHostname,omitempty"`
}

// Validate checks the invariants of a node.
func (n Node) Validate() error {
	if n.Hostname == "" {
		return NewValidationError("node hostname is required")
	}
	if _, err := ParseNodeType(string(n.Type)); err != nil {
		return WrapValidationError(err, "node %s", n.Hostname)
	}
	if _, err := ParseNodeState(string(n.State)); err != nil {
		return WrapValidationError(err, "node %s", n.Hostname)
	}
	if n.ParentHostname == n.Hostname {
		return NewValidationErrorf("node %s cannot be its own parent", n.Hostname)
	}
	if n.Allocation == nil && n.State.RequiresAllocation() {
		return NewValidationErrorf("node %s in state %s must be allocated", n.Hostname, n.State)
	}
	if n.Allocation != nil && !n.State.IsAllocated() {
		return NewValidationErrorf("node %s in state %s cannot be allocated", n.Hostname, n.State)
	}
	if n.Allocation != nil {
		if err := n.Allocation.Owner.Validate(); err != nil {
			return WrapValidationError(err, "node %s", n.Hostname)
		}
	}
	if n.Status.DockerImage != "" && !n.Flavor.IsContainer() {
		return NewValidationErrorf("node %s: docker image is only allowed for container flavors, not %s", n.Hostname, n.Flavor)
	}
	return nil
}

// IsAllocated returns true if the node is owned by an application.
func (n Node) IsAllocated() bool {
	return n.Allocation != nil
}

// IsOwnedBy returns true if the node is allocated to app.
func (n Node) IsOwnedBy(app ApplicationID) bool {
	return n.Allocation != nil && n.Allocation.Owner == app
}

// Resources returns the resources of the node's flavor.
func (n Node) Resources() NodeResources {
	return n.Flavor.Resources
}

func (n Node) String() string {
	return fmt.Sprintf("node %s (%s, %s)", n.Hostname, n.Type, n.State)
}

// clone returns a copy that shares no mutable storage with n.
func (n Node) clone() Node {
	if n.Allocation != nil {
		a := *n.Allocation
		n.Allocation = &a
	}
	if n.Status.FirmwareVerifiedAt != nil {
		t := *n.Status.FirmwareVerifiedAt
		n.Status.FirmwareVerifiedAt = &t
	}
	n.IPConfig = IPConfig{
		Primary: append([]string(nil), n.IPConfig.Primary...),
		Pool:    append([]string(nil), n.IPConfig.Pool...),
	}
	if n.Reports != nil {
		n.Reports = n.Reports.clone()
	}
	if n.History != nil {
		h := make(History, len(n.History))
		for k, v := range n.History {
			h[k] = v
		}
		n.History = h
	}
	return n
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	return n.clone()
}

// WithCurrentRebootGeneration records that the node has rebooted up to gen.
func (n Node) WithCurrentRebootGeneration(gen int64, at time.Time) Node {
	out := n.clone()
	if gen > out.Status.Reboot.Current {
		out.History = out.History.With(EventRebooted, AgentSystem, at)
	}
	out.Status.Reboot.Current = gen
	return out
}

// WithCurrentRestartGeneration records that the services on the node have
// restarted up to gen. Only the current generation changes.
func (n Node) WithCurrentRestartGeneration(gen int64, at time.Time) (Node, error) {
	if n.Allocation == nil {
		return Node{}, NewValidationErrorf("node %s is not allocated", n.Hostname)
	}
	out := n.clone()
	if gen > out.Allocation.Restart.Current {
		out.History = out.History.With(EventRestarted, AgentSystem, at)
	}
	a := out.Allocation.WithCurrentRestartGeneration(gen)
	out.Allocation = &a
	return out, nil
}

// WithCurrentOsVersion records the OS version the node runs.
func (n Node) WithCurrentOsVersion(version string, at time.Time) Node {
	out := n.clone()
	if version != out.Status.OsVersion.Current {
		out.History = out.History.With(EventOsUpgraded, AgentSystem, at)
	}
	out.Status.OsVersion.Current = version
	return out
}

// WithWantedOsVersion sets the OS version the node should upgrade to.
func (n Node) WithWantedOsVersion(version string) Node {
	out := n.clone()
	out.Status.OsVersion.Wanted = version
	return out
}

// WithFirmwareVerifiedAt records the last successful firmware check.
func (n Node) WithFirmwareVerifiedAt(verifiedAt, at time.Time) Node {
	out := n.clone()
	out.Status.FirmwareVerifiedAt = &verifiedAt
	out.History = out.History.With(EventFirmwareVerified, AgentSystem, at)
	return out
}

// WithCurrentDockerImage sets the image the node runs. Only container
// flavors run images.
func (n Node) WithCurrentDockerImage(image string) (Node, error) {
	if !n.Flavor.IsContainer() {
		return Node{}, NewValidationErrorf("docker image can only be set for containers, %s has %s of type %s", n.Hostname, n.Flavor, n.Flavor.Type)
	}
	out := n.clone()
	out.Status.DockerImage = image
	return out, nil
}

// WithVespaVersion sets the platform version running on the node.
func (n Node) WithVespaVersion(version string) Node {
	out := n.clone()
	out.Status.VespaVersion = version
	return out
}

// WithFailCount replaces the fail count.
func (n Node) WithFailCount(count int) Node {
	out := n.clone()
	out.Status.FailCount = count
	return out
}

// WithWantToRetire sets both the retire and deprovision flags, crediting agent.
func (n Node) WithWantToRetire(retire, deprovision bool, agent Agent, at time.Time) Node {
	out := n.clone()
	if retire != out.Status.WantToRetire || deprovision != out.Status.WantToDeprovision {
		out.History = out.History.With(EventWantToRetire, agent, at)
	}
	out.Status.WantToRetire = retire
	out.Status.WantToDeprovision = deprovision
	return out
}

// WithFlavor replaces the flavor.
func (n Node) WithFlavor(flavor Flavor) Node {
	out := n.clone()
	out.Flavor = flavor
	return out
}

// WithResources replaces the resources of the node's flavor.
func (n Node) WithResources(resources NodeResources) Node {
	return n.WithFlavor(n.Flavor.With(resources))
}

// WithRequestedResources replaces the resources requested by the allocation.
func (n Node) WithRequestedResources(resources NodeResources) (Node, error) {
	if n.Allocation == nil {
		return Node{}, NewValidationErrorf("node %s is not allocated", n.Hostname)
	}
	out := n.clone()
	a := out.Allocation.WithRequestedResources(resources)
	out.Allocation = &a
	return out, nil
}

// WithAllocation replaces the allocation.
func (n Node) WithAllocation(allocation Allocation) Node {
	out := n.clone()
	out.Allocation = &allocation
	return out
}

// WithoutAllocation removes the allocation.
func (n Node) WithoutAllocation() Node {
	out := n.clone()
	out.Allocation = nil
	return out
}

// WithParentHostname replaces the parent hostname.
func (n Node) WithParentHostname(parent string) Node {
	out := n.clone()
	out.ParentHostname = parent
	return out
}

// WithID replaces the provider id of the node.
func (n Node) WithID(id string) Node {
	out := n.clone()
	out.ID = id
	return out
}

// WithModelName sets the hardware model name.
func (n Node) WithModelName(model string) Node {
	out := n.clone()
	out.ModelName = model
	return out
}

// WithoutModelName clears the hardware model name.
func (n Node) WithoutModelName() Node {
	return n.WithModelName("")
}

// WithReservedTo reserves the node to a tenant.
func (n Node) WithReservedTo(tenant string) Node {
	out := n.clone()
	out.ReservedTo = tenant
	return out
}

// WithoutReservedTo clears the tenant reservation.
func (n Node) WithoutReservedTo() Node {
	return n.WithReservedTo("")
}

// WithSwitchHostname sets the switch the node is connected to.
func (n Node) WithSwitchHostname(switchHostname string) Node {
	out := n.clone()
	out.SwitchHostname = switchHostname
	return out
}

// WithoutSwitchHostname clears the switch hostname.
func (n Node) WithoutSwitchHostname() Node {
	return n.WithSwitchHostname("")
}

// WithIPConfig replaces the IP config.
func (n Node) WithIPConfig(cfg IPConfig) Node {
	out := n.clone()
	out.IPConfig = cfg
	return out
}

// WithReports replaces the reports.
func (n Node) WithReports(reports Reports) Node {
	out := n.clone()
	out.Reports = reports
	return out
}

// WithState moves the node to state, crediting agent. Moving to a state
// that cannot hold an allocation drops it and records a deallocated event.
func (n Node) WithState(state NodeState, agent Agent, at time.Time) Node {
	out := n.clone()
	if !state.IsAllocated() && out.Allocation != nil {
		out.Allocation = nil
		out.History = out.History.With(EventDeallocated, agent, at)
	}
	if state != out.State {
		if event, ok := stateEvents[state]; ok {
			out.History = out.History.With(event, agent, at)
		}
	}
	out.State = state
	return out
}
