package types

import (
	"net/netip"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// IPConfig holds the addresses assigned to a node: its own primary addresses
// and the pool it hands out to its children. Both lists are kept canonical,
// sorted and without duplicates.
type IPConfig struct {
	Primary []string `json:"primary,omitempty" yaml:"primary,omitempty"`
	Pool    []string `json:"pool,omitempty" yaml:"pool,omitempty"`
}

// ParseAddresses validates and canonicalizes a set of IP addresses.
func ParseAddresses(addresses []string) ([]string, error) {
	canonical := make([]string, 0, len(addresses))
	for _, a := range addresses {
		addr, err := netip.ParseAddr(strings.TrimSpace(a))
		if err != nil {
			return nil, NewValidationErrorf("invalid IP address '%s'", a)
		}
		canonical = append(canonical, addr.Unmap().String())
	}
	canonical = lo.Uniq(canonical)
	sort.Strings(canonical)
	return canonical, nil
}

// NewIPConfig returns a canonical IPConfig for the given addresses.
func NewIPConfig(primary, pool []string) (IPConfig, error) {
	p, err := ParseAddresses(primary)
	if err != nil {
		return IPConfig{}, err
	}
	q, err := ParseAddresses(pool)
	if err != nil {
		return IPConfig{}, err
	}
	return IPConfig{Primary: p, Pool: q}, nil
}

// WithPrimary returns a copy with the primary addresses replaced.
func (c IPConfig) WithPrimary(addresses []string) (IPConfig, error) {
	return NewIPConfig(addresses, c.Pool)
}

// WithPool returns a copy with the pool addresses replaced.
func (c IPConfig) WithPool(addresses []string) (IPConfig, error) {
	return NewIPConfig(c.Primary, addresses)
}

// Contains returns true if address is one of the primary addresses.
func (c IPConfig) Contains(address string) bool {
	return lo.Contains(c.Primary, address)
}

// VerifyIPConfig checks that the addresses of node do not collide with any
// other node in the inventory. Nodes with the same hostname as node are
// treated as older versions of it and skipped.
func VerifyIPConfig(node Node, inventory []Node) error {
	cfg := node.IPConfig
	if overlap := lo.Intersect(cfg.Primary, cfg.Pool); len(overlap) > 0 {
		return NewValidationErrorf("IP pool %v intersects primary IP addresses %v of %s", overlap, cfg.Primary, node.Hostname)
	}

	for _, other := range inventory {
		if other.Hostname == node.Hostname {
			continue
		}
		if overlap := lo.Intersect(cfg.Primary, other.IPConfig.Primary); len(overlap) > 0 {
			return NewValidationErrorf("cannot assign %v to %s: %v already assigned to %s", cfg.Primary, node.Hostname, overlap, other.Hostname)
		}
		if overlap := lo.Intersect(cfg.Pool, other.IPConfig.Pool); len(overlap) > 0 {
			return NewValidationErrorf("cannot assign pool %v to %s: %v already in the pool of %s", cfg.Pool, node.Hostname, overlap, other.Hostname)
		}
		// Children take their primary addresses from their parent's pool
		if other.ParentHostname != node.Hostname {
			if overlap := lo.Intersect(cfg.Pool, other.IPConfig.Primary); len(overlap) > 0 {
				return NewValidationErrorf("cannot assign pool %v to %s: %v already assigned to %s", cfg.Pool, node.Hostname, overlap, other.Hostname)
			}
		}
		if node.ParentHostname != other.Hostname {
			if overlap := lo.Intersect(cfg.Primary, other.IPConfig.Pool); len(overlap) > 0 {
				return NewValidationErrorf("cannot assign %v to %s: %v is in the pool of %s", cfg.Primary, node.Hostname, overlap, other.Hostname)
			}
		}
	}
	return nil
}
