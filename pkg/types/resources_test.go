package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genDiskSpeed() gopter.Gen {
	return gen.OneConstOf(DiskSpeed(""), DiskSpeedAny, DiskSpeedFast, DiskSpeedSlow)
}

func genStorageType() gopter.Gen {
	return gen.OneConstOf(StorageType(""), StorageTypeAny, StorageTypeLocal, StorageTypeRemote)
}

func genNodeResources() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 64),
		gen.IntRange(0, 256),
		gen.IntRange(0, 2000),
		gen.IntRange(0, 25),
		genDiskSpeed(),
		genStorageType(),
	).Map(func(v []interface{}) NodeResources {
		return NodeResources{
			Vcpu:          float64(v[0].(int)),
			MemoryGb:      float64(v[1].(int)),
			DiskGb:        float64(v[2].(int)),
			BandwidthGbps: float64(v[3].(int)),
			DiskSpeed:     v[4].(DiskSpeed),
			StorageType:   v[5].(StorageType),
		}
	})
}

func genClusterResources() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(1, 8),
		gen.IntRange(1, 4),
		genNodeResources(),
	).Map(func(v []interface{}) ClusterResources {
		groups := v[1].(int)
		return MustClusterResources(v[0].(int)*groups, groups, v[2].(NodeResources))
	})
}

func TestResourceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("satisfies is reflexive", prop.ForAll(
		func(r NodeResources) bool {
			return r.Satisfies(r)
		},
		genNodeResources(),
	))

	properties.Property("any disk speed and storage type match everything", prop.ForAll(
		func(r NodeResources, speed DiskSpeed, storage StorageType) bool {
			other := r.WithDiskSpeed(speed).WithStorageType(storage)
			return r.JustNumbers().Satisfies(other) && other.Satisfies(r.JustNumbers())
		},
		genNodeResources(), genDiskSpeed(), genStorageType(),
	))

	properties.Property("growing any number keeps satisfying", prop.ForAll(
		func(r NodeResources, extra int) bool {
			bigger := r.WithVcpu(r.Vcpu + float64(extra)).WithDiskGb(r.DiskGb + float64(extra))
			return bigger.Satisfies(r)
		},
		genNodeResources(), gen.IntRange(0, 100),
	))

	properties.Property("a cluster is within itself", prop.ForAll(
		func(c ClusterResources) bool {
			return c.IsWithin(c, c)
		},
		genClusterResources(),
	))

	properties.Property("within means neither smaller than min nor larger than max", prop.ForAll(
		func(c, min, max ClusterResources) bool {
			return c.IsWithin(min, max) == (!c.SmallerThan(min) && !max.SmallerThan(c))
		},
		genClusterResources(), genClusterResources(), genClusterResources(),
	))

	properties.Property("node count must divide into groups", prop.ForAll(
		func(nodes, groups int) bool {
			_, err := NewClusterResources(nodes, groups, NodeResources{})
			return (err == nil) == (nodes%groups == 0)
		},
		gen.IntRange(1, 50), gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}

func TestParseDiskSpeedAndStorageType(t *testing.T) {
	speed, err := ParseDiskSpeed("fast")
	require.NoError(t, err)
	assert.Equal(t, DiskSpeedFast, speed)

	_, err = ParseDiskSpeed("warp")
	assert.True(t, IsValidationError(err))

	storage, err := ParseStorageType("remote")
	require.NoError(t, err)
	assert.Equal(t, StorageTypeRemote, storage)

	_, err = ParseStorageType("tape")
	assert.True(t, IsValidationError(err))
}

func TestSatisfies(t *testing.T) {
	small := NodeResources{Vcpu: 2, MemoryGb: 8, DiskGb: 50, BandwidthGbps: 1, DiskSpeed: DiskSpeedFast}

	assert.False(t, small.Satisfies(small.WithVcpu(3)))
	assert.False(t, small.Satisfies(small.WithDiskSpeed(DiskSpeedSlow)))
	assert.True(t, small.Satisfies(small.WithDiskSpeed(DiskSpeedAny)))
	assert.True(t, small.WithStorageType(StorageTypeLocal).Satisfies(small))
}

func TestClusterResources(t *testing.T) {
	r := NodeResources{Vcpu: 4, MemoryGb: 16, DiskGb: 100, BandwidthGbps: 1}

	_, err := NewClusterResources(-1, 1, r)
	assert.True(t, IsValidationError(err))
	_, err = NewClusterResources(5, 2, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "divisible")

	c := MustClusterResources(6, 2, r)
	assert.Equal(t, "6 nodes (in 2 groups) with "+r.String(), c.String())
	assert.Equal(t, "1 nodes with "+r.String(), MustClusterResources(1, 1, r).String())

	_, err = c.WithGroups(4)
	assert.Error(t, err)

	min := MustClusterResources(2, 1, r)
	max := MustClusterResources(10, 2, r.WithVcpu(8))
	assert.True(t, c.IsWithin(min, max))
	assert.False(t, c.WithResources(r.WithVcpu(16)).IsWithin(min, max))
	assert.False(t, MustClusterResources(1, 1, r).IsWithin(min, max))
	assert.True(t, c.WithResources(r.WithDiskSpeed(DiskSpeedSlow)).IsWithin(min, max),
		"only numeric dimensions are compared")
}

func TestClusterResourcesJSON(t *testing.T) {
	var c ClusterResources
	err := c.UnmarshalJSON([]byte(`{"nodes": 3, "groups": 2, "resources": {"vcpu": 1}}`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	require.NoError(t, c.UnmarshalJSON([]byte(`{"nodes": 4, "groups": 2, "resources": {"vcpu": 1}}`)))
	assert.Equal(t, 4, c.Nodes())
	assert.Equal(t, 2, c.Groups())
	assert.Equal(t, 1.0, c.NodeResources().Vcpu)
}
