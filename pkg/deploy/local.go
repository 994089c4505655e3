package deploy

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/store/repos"
	"github.com/rzbill/provision/pkg/types"
	"github.com/samber/lo"
)

// NodeSource lists the nodes of an application.
type NodeSource interface {
	NodesOf(ctx context.Context, app types.ApplicationID, states ...types.NodeState) ([]types.Node, error)
}

// LocalDeployer redeploys the applications stored on this config server.
type LocalDeployer struct {
	apps         *repos.BaseRepo[Application]
	nodes        NodeSource
	configServer string
	clock        clock.Clock
	logger       log.Logger
}

var _ Deployer = (*LocalDeployer)(nil)

// LocalDeployerOption configures a LocalDeployer.
type LocalDeployerOption func(*LocalDeployer)

// WithClock sets the clock used for deadlines and activation times.
func WithClock(c clock.Clock) LocalDeployerOption {
	return func(d *LocalDeployer) { d.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) LocalDeployerOption {
	return func(d *LocalDeployer) { d.logger = logger }
}

// NewLocalDeployer creates a deployer for the applications in core owned
// by configServer.
func NewLocalDeployer(core store.Store, nodes NodeSource, configServer string, opts ...LocalDeployerOption) *LocalDeployer {
	d := &LocalDeployer{
		apps:         repos.NewBaseRepo[Application](core, store.ResourceTypeApplication),
		nodes:        nodes,
		configServer: configServer,
		clock:        clock.Real(),
		logger:       log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("deploy")
	return d
}

// AddApplication stores a new application. An empty config server means
// this one.
func (d *LocalDeployer) AddApplication(ctx context.Context, app Application) error {
	if err := app.Validate(); err != nil {
		return err
	}
	if app.ConfigServer == "" {
		app.ConfigServer = d.configServer
	}
	namespace, name := storeKey(app.ID)
	if err := d.apps.Create(ctx, namespace, name, &app); err != nil {
		if store.IsAlreadyExistsError(err) {
			return types.NewValidationErrorf("application %s already exists", app.ID)
		}
		return err
	}
	d.logger.Info("Added application", log.Application(app.ID.String()), log.Int("clusters", len(app.Clusters)))
	return nil
}

// Application returns the stored application with the given id.
func (d *LocalDeployer) Application(ctx context.Context, id types.ApplicationID) (Application, error) {
	namespace, name := storeKey(id)
	app, err := d.apps.Get(ctx, namespace, name)
	if err != nil {
		return Application{}, fmt.Errorf("application %s: %w", id, err)
	}
	return *app, nil
}

// Applications returns all stored applications.
func (d *LocalDeployer) Applications(ctx context.Context) ([]Application, error) {
	return d.apps.List(ctx, store.AllNamespaces)
}

// DeployFromLocalActive implements Deployer. Applications unknown here, or
// owned by another config server, are declined.
func (d *LocalDeployer) DeployFromLocalActive(ctx context.Context, id types.ApplicationID, timeout time.Duration) (Deployment, error) {
	app, err := d.Application(ctx, id)
	if store.IsNotFoundError(err) {
		d.logger.Debug("Application not deployed here", log.Application(id.String()))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if app.ConfigServer != "" && app.ConfigServer != d.configServer {
		d.logger.Debug("Application owned by another config server",
			log.Application(id.String()),
			log.Str("configServer", app.ConfigServer))
		return nil, nil
	}

	return &localDeployment{
		deployer: d,
		app:      app,
		deadline: d.clock.Now().Add(timeout),
	}, nil
}

type localDeployment struct {
	deployer  *LocalDeployer
	app       Application
	deadline  time.Time
	sessionID string
}

func (l *localDeployment) checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.deployer.clock.Now().After(l.deadline) {
		return fmt.Errorf("deployment of %s timed out at %s", l.app.ID, l.deadline.Format(time.RFC3339))
	}
	return nil
}

// Prepare checks that every cluster's active nodes fit its spec.
func (l *localDeployment) Prepare(ctx context.Context) error {
	if err := l.checkDeadline(ctx); err != nil {
		return err
	}

	active, err := l.deployer.nodes.NodesOf(ctx, l.app.ID, types.NodeStateActive)
	if err != nil {
		return fmt.Errorf("failed to list nodes of %s: %w", l.app.ID, err)
	}

	byCluster := lo.GroupBy(active, func(n types.Node) string { return n.Allocation.Membership.Cluster })
	for _, spec := range l.app.Clusters {
		measured, err := measure(byCluster[spec.ID])
		if err != nil {
			return fmt.Errorf("cluster '%s' of %s: %w", spec.ID, l.app.ID, err)
		}
		if !measured.IsWithin(spec.Min, spec.Max) {
			return fmt.Errorf("cluster '%s' of %s has %s, which is outside [%s, %s]", spec.ID, l.app.ID, measured, spec.Min, spec.Max)
		}
	}
	for cluster := range byCluster {
		if _, ok := l.app.Cluster(cluster); !ok {
			l.deployer.logger.Warn("Active nodes in undeclared cluster",
				log.Application(l.app.ID.String()),
				log.Str("cluster", cluster))
		}
	}

	l.sessionID = uuid.NewString()
	l.deployer.logger.Debug("Prepared deployment",
		log.Application(l.app.ID.String()),
		log.Str("session", l.sessionID),
		log.Int("activeNodes", len(active)))
	return nil
}

// Activate records the prepared session as the active generation.
func (l *localDeployment) Activate(ctx context.Context) error {
	if l.sessionID == "" {
		return fmt.Errorf("deployment of %s has not been prepared", l.app.ID)
	}
	if err := l.checkDeadline(ctx); err != nil {
		return err
	}

	namespace, name := storeKey(l.app.ID)
	err := l.deployer.apps.Transaction(ctx, func(tx *repos.Tx[Application]) error {
		current, err := tx.Get(namespace, name)
		if err != nil {
			return err
		}
		now := l.deployer.clock.Now()
		current.Generation++
		current.SessionID = l.sessionID
		current.ActivatedAt = &now
		return tx.Update(namespace, name, current)
	})
	if err != nil {
		return fmt.Errorf("failed to activate %s: %w", l.app.ID, err)
	}

	l.deployer.logger.Info("Activated deployment",
		log.Application(l.app.ID.String()),
		log.Str("session", l.sessionID))
	return nil
}

// measure describes a set of nodes as cluster resources: the node count,
// the number of distinct groups and the smallest resources of any node.
func measure(nodes []types.Node) (types.ClusterResources, error) {
	if len(nodes) == 0 {
		return types.NewClusterResources(0, 0, types.NodeResources{})
	}

	groups := lo.Uniq(lo.Map(nodes, func(n types.Node, _ int) int { return n.Allocation.Membership.Group }))

	smallest := types.NodeResources{
		Vcpu: math.Inf(1), MemoryGb: math.Inf(1), DiskGb: math.Inf(1), BandwidthGbps: math.Inf(1),
	}
	for _, n := range nodes {
		r := n.Resources()
		smallest = smallest.
			WithVcpu(math.Min(smallest.Vcpu, r.Vcpu)).
			WithMemoryGb(math.Min(smallest.MemoryGb, r.MemoryGb)).
			WithDiskGb(math.Min(smallest.DiskGb, r.DiskGb)).
			WithBandwidthGbps(math.Min(smallest.BandwidthGbps, r.BandwidthGbps))
	}
	return types.NewClusterResources(len(nodes), len(groups), smallest)
}
