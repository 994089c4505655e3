package patch

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/distribution/reference"
	"github.com/rzbill/provision/pkg/types"
)

// applyFunc computes the new value of node for one field. asChild is true
// when the field is re-applied to a child of the patched host.
type applyFunc func(p *Patcher, node types.Node, value Value, asChild bool) (types.Node, error)

type fieldRule struct {
	apply applyFunc

	// recursive rules are re-applied to every child of a patched host.
	recursive bool
}

const (
	wantToRetireField      = "wantToRetire"
	wantToDeprovisionField = "wantToDeprovision"
)

var fieldRules = map[string]fieldRule{
	"currentRebootGeneration":  {apply: patchRebootGeneration},
	"currentRestartGeneration": {apply: patchRestartGeneration},
	"currentDockerImage":       {apply: patchDockerImage},
	"vespaVersion":             {apply: patchVespaVersion},
	"currentVespaVersion":      {apply: patchVespaVersion},
	"currentOsVersion":         {apply: patchOsVersion},
	"currentFirmwareCheck":     {apply: patchFirmwareCheck},
	"failCount":                {apply: patchFailCount},
	"flavor":                   {apply: patchFlavor},
	"parentHostname":           {apply: patchParentHostname},
	"openStackId":              {apply: patchOpenStackID},
	"modelName":                {apply: patchModelName},
	"reservedTo":               {apply: patchReservedTo},
	"switchHostname":           {apply: patchSwitchHostname},
	"ipAddresses":              {apply: patchIPAddresses},
	"additionalIpAddresses":    {apply: patchAdditionalIPAddresses},
	wantToRetireField:          {apply: patchWantToRetire, recursive: true},
	wantToDeprovisionField:     {apply: patchWantToRetire, recursive: true},
	"reports":                  {apply: patchReports},
	"diskGb":                   {apply: resourceRule(types.NodeResources.WithDiskGb)},
	"minDiskAvailableGb":       {apply: resourceRule(types.NodeResources.WithDiskGb)},
	"memoryGb":                 {apply: resourceRule(types.NodeResources.WithMemoryGb)},
	"minMainMemoryAvailableGb": {apply: resourceRule(types.NodeResources.WithMemoryGb)},
	"vcpu":                     {apply: resourceRule(types.NodeResources.WithVcpu)},
	"minCpuCores":              {apply: resourceRule(types.NodeResources.WithVcpu)},
	"bandwidthGbps":            {apply: resourceRule(types.NodeResources.WithBandwidthGbps)},
	"fastDisk":                 {apply: patchFastDisk},
	"remoteStorage":            {apply: patchRemoteStorage},
	"requiredDiskSpeed":        {apply: patchRequiredDiskSpeed},
}

// FieldNames returns the names of all patchable fields.
func FieldNames() []string {
	names := make([]string, 0, len(fieldRules))
	for name := range fieldRules {
		names = append(names, name)
	}
	return names
}

// IsRecursive returns true if the field propagates from a host to its children.
func IsRecursive(name string) bool {
	return fieldRules[name].recursive
}

func patchRebootGeneration(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	gen, err := value.AsLong()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithCurrentRebootGeneration(gen, p.clock.Now()), nil
}

func patchRestartGeneration(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	gen, err := value.AsLong()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithCurrentRestartGeneration(gen, p.clock.Now())
}

func patchDockerImage(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	if !node.Flavor.IsContainer() {
		return types.Node{}, fmt.Errorf("Docker image can only be set for docker containers")
	}
	s, err := value.AsString()
	if err != nil {
		return types.Node{}, err
	}
	image, err := reference.ParseNormalizedNamed(s)
	if err != nil {
		return types.Node{}, fmt.Errorf("invalid docker image '%s': %w", s, err)
	}
	return node.WithCurrentDockerImage(image.String())
}

func parseVersion(value Value) (string, error) {
	s, err := value.AsString()
	if err != nil {
		return "", err
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return "", fmt.Errorf("invalid version '%s': %w", s, err)
	}
	return v.String(), nil
}

func patchVespaVersion(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	v, err := parseVersion(value)
	if err != nil {
		return types.Node{}, err
	}
	return node.WithVespaVersion(v), nil
}

func patchOsVersion(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	v, err := parseVersion(value)
	if err != nil {
		return types.Node{}, err
	}
	return node.WithCurrentOsVersion(v, p.clock.Now()), nil
}

func patchFirmwareCheck(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	millis, err := value.AsLong()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithFirmwareVerifiedAt(time.UnixMilli(millis).UTC(), p.clock.Now()), nil
}

func patchFailCount(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	count, err := value.AsLong()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithFailCount(int(count)), nil
}

func patchFlavor(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	name, err := value.AsString()
	if err != nil {
		return types.Node{}, err
	}
	flavor, err := p.flavors.Flavor(name)
	if err != nil {
		return types.Node{}, err
	}
	return node.WithFlavor(flavor), nil
}

func patchParentHostname(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	parent, err := value.AsString()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithParentHostname(parent), nil
}

func patchOpenStackID(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	id, err := value.AsString()
	if err != nil {
		return types.Node{}, err
	}
	return node.WithID(id), nil
}

// clearableString applies set to a string value, or clear to null.
func clearableString(set func(types.Node, string) types.Node, clear func(types.Node) types.Node) applyFunc {
	return func(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
		if value.IsNull() {
			return clear(node), nil
		}
		s, err := value.AsString()
		if err != nil {
			return types.Node{}, err
		}
		return set(node, s), nil
	}
}

var (
	patchModelName      = clearableString(types.Node.WithModelName, types.Node.WithoutModelName)
	patchReservedTo     = clearableString(types.Node.WithReservedTo, types.Node.WithoutReservedTo)
	patchSwitchHostname = clearableString(types.Node.WithSwitchHostname, types.Node.WithoutSwitchHostname)
)

func patchIPAddresses(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	addresses, err := value.AsStrings()
	if err != nil {
		return types.Node{}, err
	}
	cfg, err := node.IPConfig.WithPrimary(addresses)
	if err != nil {
		return types.Node{}, err
	}
	return p.verifyIPConfig(node.WithIPConfig(cfg))
}

func patchAdditionalIPAddresses(p *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	addresses, err := value.AsStrings()
	if err != nil {
		return types.Node{}, err
	}
	cfg, err := node.IPConfig.WithPool(addresses)
	if err != nil {
		return types.Node{}, err
	}
	return p.verifyIPConfig(node.WithIPConfig(cfg))
}

func (p *Patcher) verifyIPConfig(node types.Node) (types.Node, error) {
	all, err := p.allNodes()
	if err != nil {
		return types.Node{}, err
	}
	if err := types.VerifyIPConfig(node, all); err != nil {
		return types.Node{}, err
	}
	return node, nil
}

// patchWantToRetire serves both wantToRetire and wantToDeprovision. Both
// flags are read from the document and default to the node's current
// values. A child is never told to deprovision.
func patchWantToRetire(p *Patcher, node types.Node, _ Value, asChild bool) (types.Node, error) {
	retire, err := optionalBool(p.root, wantToRetireField, node.Status.WantToRetire)
	if err != nil {
		return types.Node{}, err
	}
	deprovision, err := optionalBool(p.root, wantToDeprovisionField, node.Status.WantToDeprovision)
	if err != nil {
		return types.Node{}, err
	}
	return node.WithWantToRetire(retire, deprovision && !asChild, types.AgentOperator, p.clock.Now()), nil
}

func optionalBool(root Value, name string, fallback bool) (bool, error) {
	v, ok := root.Field(name)
	if !ok {
		return fallback, nil
	}
	return v.AsBool()
}

func resourceRule(with func(types.NodeResources, float64) types.NodeResources) applyFunc {
	return func(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
		v, err := value.AsDouble()
		if err != nil {
			return types.Node{}, err
		}
		return node.WithResources(with(node.Resources(), v)), nil
	}
}

func patchFastDisk(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	fast, err := value.AsBool()
	if err != nil {
		return types.Node{}, err
	}
	speed := types.DiskSpeedSlow
	if fast {
		speed = types.DiskSpeedFast
	}
	return node.WithResources(node.Resources().WithDiskSpeed(speed)), nil
}

func patchRemoteStorage(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	remote, err := value.AsBool()
	if err != nil {
		return types.Node{}, err
	}
	storage := types.StorageTypeLocal
	if remote {
		storage = types.StorageTypeRemote
	}
	return node.WithResources(node.Resources().WithStorageType(storage)), nil
}

func patchRequiredDiskSpeed(_ *Patcher, node types.Node, value Value, _ bool) (types.Node, error) {
	s, err := value.AsString()
	if err != nil {
		return types.Node{}, err
	}
	if node.Allocation == nil {
		return types.Node{}, fmt.Errorf("Node is not allocated")
	}
	speed, err := types.ParseDiskSpeed(s)
	if err != nil {
		return types.Node{}, err
	}
	return node.WithRequestedResources(node.Allocation.RequestedResources.WithDiskSpeed(speed))
}
