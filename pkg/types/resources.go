// Package types defines the node inventory data model: resources, flavors,
// nodes and the applications they are allocated to.
package types

import (
	"fmt"
	"strconv"
)

// DiskSpeed is the speed class of a node's disk.
type DiskSpeed string

const (
	DiskSpeedFast DiskSpeed = "fast"
	DiskSpeedSlow DiskSpeed = "slow"
	DiskSpeedAny  DiskSpeed = "any"
)

// ParseDiskSpeed parses a disk speed name.
func ParseDiskSpeed(s string) (DiskSpeed, error) {
	switch DiskSpeed(s) {
	case DiskSpeedFast, DiskSpeedSlow, DiskSpeedAny:
		return DiskSpeed(s), nil
	}
	return "", NewValidationErrorf("unknown disk speed '%s'", s)
}

func (s DiskSpeed) isAny() bool { return s == "" || s == DiskSpeedAny }

func (s DiskSpeed) compatibleWith(other DiskSpeed) bool {
	return s.isAny() || other.isAny() || s == other
}

// StorageType is where a node's disk lives.
type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeRemote StorageType = "remote"
	StorageTypeAny    StorageType = "any"
)

// ParseStorageType parses a storage type name.
func ParseStorageType(s string) (StorageType, error) {
	switch StorageType(s) {
	case StorageTypeLocal, StorageTypeRemote, StorageTypeAny:
		return StorageType(s), nil
	}
	return "", NewValidationErrorf("unknown storage type '%s'", s)
}

func (s StorageType) isAny() bool { return s == "" || s == StorageTypeAny }

func (s StorageType) compatibleWith(other StorageType) bool {
	return s.isAny() || other.isAny() || s == other
}

// NodeResources describes the hardware capacity of a single node.
// It is a value type: the With methods return modified copies.
type NodeResources struct {
	Vcpu          float64     `json:"vcpu" yaml:"vcpu"`
	MemoryGb      float64     `json:"memoryGb" yaml:"memoryGb"`
	DiskGb        float64     `json:"diskGb" yaml:"diskGb"`
	BandwidthGbps float64     `json:"bandwidthGbps" yaml:"bandwidthGbps"`
	DiskSpeed     DiskSpeed   `json:"diskSpeed,omitempty" yaml:"diskSpeed,omitempty"`
	StorageType   StorageType `json:"storageType,omitempty" yaml:"storageType,omitempty"`
}

func (r NodeResources) WithVcpu(vcpu float64) NodeResources {
	r.Vcpu = vcpu
	return r
}

func (r NodeResources) WithMemoryGb(memoryGb float64) NodeResources {
	r.MemoryGb = memoryGb
	return r
}

func (r NodeResources) WithDiskGb(diskGb float64) NodeResources {
	r.DiskGb = diskGb
	return r
}

func (r NodeResources) WithBandwidthGbps(bandwidthGbps float64) NodeResources {
	r.BandwidthGbps = bandwidthGbps
	return r
}

func (r NodeResources) WithDiskSpeed(speed DiskSpeed) NodeResources {
	r.DiskSpeed = speed
	return r
}

func (r NodeResources) WithStorageType(storageType StorageType) NodeResources {
	r.StorageType = storageType
	return r
}

// JustNumbers returns these resources with the categorical dimensions set to any.
func (r NodeResources) JustNumbers() NodeResources {
	r.DiskSpeed = DiskSpeedAny
	r.StorageType = StorageTypeAny
	return r
}

// Satisfies returns true if r is at least as large as other in every numeric
// dimension and compatible with it in every categorical one. A categorical
// value of any (or unset) on either side is compatible with everything.
func (r NodeResources) Satisfies(other NodeResources) bool {
	if r.Vcpu < other.Vcpu {
		return false
	}
	if r.MemoryGb < other.MemoryGb {
		return false
	}
	if r.DiskGb < other.DiskGb {
		return false
	}
	if r.BandwidthGbps < other.BandwidthGbps {
		return false
	}
	if !r.DiskSpeed.compatibleWith(other.DiskSpeed) {
		return false
	}
	if !r.StorageType.compatibleWith(other.StorageType) {
		return false
	}
	return true
}

func (r NodeResources) String() string {
	return fmt.Sprintf("[vcpu: %s, memory: %s Gb, disk %s Gb, bandwidth: %s Gbps, disk speed: %s, storage type: %s]",
		formatNumber(r.Vcpu), formatNumber(r.MemoryGb), formatNumber(r.DiskGb), formatNumber(r.BandwidthGbps),
		orAny(string(r.DiskSpeed)), orAny(string(r.StorageType)))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}
