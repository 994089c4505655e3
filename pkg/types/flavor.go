package types

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// FlavorType classifies what kind of machine a flavor describes.
type FlavorType string

const (
	FlavorTypeBareMetal      FlavorType = "bare-metal"
	FlavorTypeVirtualMachine FlavorType = "virtual-machine"
	FlavorTypeContainer      FlavorType = "container"
)

// Flavor is a named template resolving to concrete node resources.
type Flavor struct {
	Name      string        `json:"name" yaml:"name"`
	Type      FlavorType    `json:"type" yaml:"type"`
	Resources NodeResources `json:"resources" yaml:"resources"`

	// Configured is true for flavors taken from the catalog, false for
	// flavors whose resources were edited on a single node.
	Configured bool `json:"configured" yaml:"-"`
}

// IsContainer returns true if nodes of this flavor run as containers.
func (f Flavor) IsContainer() bool {
	return f.Type == FlavorTypeContainer
}

// With returns a copy of this flavor with the given resources. The result is
// no longer a catalog flavor.
func (f Flavor) With(resources NodeResources) Flavor {
	f.Resources = resources
	f.Configured = false
	return f
}

func (f Flavor) String() string {
	return fmt.Sprintf("flavor '%s'", f.Name)
}

// FlavorResolver resolves flavor names.
type FlavorResolver interface {
	Flavor(name string) (Flavor, error)
}

// FlavorCatalog is the set of configured flavors, keyed by name.
type FlavorCatalog struct {
	flavors map[string]Flavor
}

var _ FlavorResolver = (*FlavorCatalog)(nil)

type flavorFile struct {
	Flavors []Flavor `yaml:"flavors"`
}

// NewFlavorCatalog builds a catalog from the given flavors.
func NewFlavorCatalog(flavors ...Flavor) (*FlavorCatalog, error) {
	c := &FlavorCatalog{flavors: make(map[string]Flavor, len(flavors))}
	for _, f := range flavors {
		if f.Name == "" {
			return nil, NewValidationError("flavor name is required")
		}
		if _, exists := c.flavors[f.Name]; exists {
			return nil, NewValidationErrorf("duplicate flavor '%s'", f.Name)
		}
		switch f.Type {
		case FlavorTypeBareMetal, FlavorTypeVirtualMachine, FlavorTypeContainer:
		case "":
			f.Type = FlavorTypeBareMetal
		default:
			return nil, NewValidationErrorf("flavor '%s' has unknown type '%s'", f.Name, f.Type)
		}
		f.Configured = true
		c.flavors[f.Name] = f
	}
	return c, nil
}

// ReadFlavorCatalog parses a YAML document of the form
//
//	flavors:
//	  - name: large
//	    type: bare-metal
//	    resources: {vcpu: 16, memoryGb: 64, diskGb: 1600, bandwidthGbps: 10, diskSpeed: fast, storageType: local}
func ReadFlavorCatalog(r io.Reader) (*FlavorCatalog, error) {
	var file flavorFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse flavors: %w", err)
	}
	return NewFlavorCatalog(file.Flavors...)
}

// LoadFlavorCatalog reads the flavor catalog from a YAML file.
func LoadFlavorCatalog(path string) (*FlavorCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flavors file: %w", err)
	}
	defer f.Close()
	return ReadFlavorCatalog(f)
}

// Flavor returns the named flavor, or an error if it is not configured.
func (c *FlavorCatalog) Flavor(name string) (Flavor, error) {
	f, ok := c.flavors[name]
	if !ok {
		return Flavor{}, NewValidationErrorf("unknown flavor '%s'", name)
	}
	return f, nil
}

// Names returns the configured flavor names in sorted order.
func (c *FlavorCatalog) Names() []string {
	names := make([]string, 0, len(c.flavors))
	for name := range c.flavors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
