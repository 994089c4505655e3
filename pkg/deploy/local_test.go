package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	app1    = types.ApplicationID{Tenant: "t1", Application: "music", Instance: "default"}
	small   = types.NodeResources{Vcpu: 2, MemoryGb: 8, DiskGb: 50, BandwidthGbps: 1}
	large   = types.NodeResources{Vcpu: 8, MemoryGb: 32, DiskGb: 200, BandwidthGbps: 1}
)

type staticNodes []types.Node

func (s staticNodes) NodesOf(_ context.Context, app types.ApplicationID, states ...types.NodeState) ([]types.Node, error) {
	var out []types.Node
	for _, n := range s {
		if !n.IsOwnedBy(app) {
			continue
		}
		if len(states) > 0 && n.State != states[0] {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func activeNode(hostname, cluster string, group int, resources types.NodeResources) types.Node {
	return types.Node{
		Hostname: hostname,
		Type:     types.NodeTypeTenant,
		State:    types.NodeStateActive,
		Flavor:   types.Flavor{Name: "d", Type: types.FlavorTypeContainer, Resources: resources},
		Allocation: &types.Allocation{
			Owner:      app1,
			Membership: types.Membership{Cluster: cluster, Group: group},
		},
	}
}

func musicApp() Application {
	return Application{
		ID: app1,
		Clusters: []ClusterSpec{{
			ID:  "search",
			Min: types.MustClusterResources(2, 1, small),
			Max: types.MustClusterResources(4, 2, large),
		}},
	}
}

func setupDeployer(t *testing.T, nodes staticNodes) (*LocalDeployer, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(testNow)
	d := NewLocalDeployer(store.NewMemoryStore(), nodes, "cfg1", WithClock(clk), WithLogger(log.NewTestLogger()))
	return d, clk
}

func TestAddApplication(t *testing.T) {
	d, _ := setupDeployer(t, nil)
	ctx := context.Background()

	require.NoError(t, d.AddApplication(ctx, musicApp()))
	app, err := d.Application(ctx, app1)
	require.NoError(t, err)
	assert.Equal(t, "cfg1", app.ConfigServer)
	spec, ok := app.Cluster("search")
	require.True(t, ok)
	assert.Equal(t, 2, spec.Min.Nodes())

	err = d.AddApplication(ctx, musicApp())
	assert.True(t, types.IsValidationError(err))

	invalid := musicApp()
	invalid.ID = types.ApplicationID{Tenant: "t1", Application: "other", Instance: "default"}
	invalid.Clusters[0].Max = types.MustClusterResources(1, 1, large)
	assert.True(t, types.IsValidationError(d.AddApplication(ctx, invalid)))

	apps, err := d.Applications(ctx)
	require.NoError(t, err)
	assert.Len(t, apps, 1)
}

func TestDeployDeclinesUnknownAndForeignApplications(t *testing.T) {
	d, _ := setupDeployer(t, nil)
	ctx := context.Background()

	deployment, err := d.DeployFromLocalActive(ctx, app1, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, deployment)

	foreign := musicApp()
	foreign.ConfigServer = "cfg2"
	require.NoError(t, d.AddApplication(ctx, foreign))
	deployment, err = d.DeployFromLocalActive(ctx, app1, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, deployment)
}

func TestPrepareAndActivate(t *testing.T) {
	d, clk := setupDeployer(t, staticNodes{
		activeNode("c1", "search", 0, large),
		activeNode("c2", "search", 0, small),
	})
	ctx := context.Background()
	require.NoError(t, d.AddApplication(ctx, musicApp()))

	deployment, err := d.DeployFromLocalActive(ctx, app1, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, deployment)

	assert.Error(t, deployment.Activate(ctx), "activate requires prepare")
	require.NoError(t, deployment.Prepare(ctx))

	clk.Advance(10 * time.Second)
	require.NoError(t, deployment.Activate(ctx))

	app, err := d.Application(ctx, app1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), app.Generation)
	assert.NotEmpty(t, app.SessionID)
	require.NotNil(t, app.ActivatedAt)
	assert.True(t, app.ActivatedAt.Equal(testNow.Add(10*time.Second)))
}

func TestPrepareRejectsClusterOutsideLimits(t *testing.T) {
	d, _ := setupDeployer(t, staticNodes{activeNode("c1", "search", 0, large)})
	ctx := context.Background()
	require.NoError(t, d.AddApplication(ctx, musicApp()))

	deployment, err := d.DeployFromLocalActive(ctx, app1, time.Minute)
	require.NoError(t, err)
	err = deployment.Prepare(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster 'search'")
}

func TestDeploymentTimesOut(t *testing.T) {
	d, clk := setupDeployer(t, staticNodes{
		activeNode("c1", "search", 0, small),
		activeNode("c2", "search", 0, small),
	})
	ctx := context.Background()
	require.NoError(t, d.AddApplication(ctx, musicApp()))

	deployment, err := d.DeployFromLocalActive(ctx, app1, time.Minute)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	err = deployment.Prepare(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestMeasure(t *testing.T) {
	measured, err := measure([]types.Node{
		activeNode("c1", "search", 0, large),
		activeNode("c2", "search", 1, small.WithDiskGb(500)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, measured.Nodes())
	assert.Equal(t, 2, measured.Groups())
	assert.Equal(t, types.NodeResources{Vcpu: 2, MemoryGb: 8, DiskGb: 200, BandwidthGbps: 1}, measured.NodeResources())

	_, err = measure([]types.Node{
		activeNode("c1", "search", 0, large),
		activeNode("c2", "search", 1, large),
		activeNode("c3", "search", 2, large),
		activeNode("c4", "search", 2, large),
	})
	assert.True(t, types.IsValidationError(err), "4 nodes do not divide into 3 groups")
}
