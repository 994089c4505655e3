package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/rzbill/provision/pkg/deploy"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/nodes"
	"github.com/rzbill/provision/pkg/types"
)

const (
	// ApplicationMaintainerName is the job name used for job control.
	ApplicationMaintainerName = "ApplicationMaintainer"

	DefaultDeployTimeout = 30 * time.Minute
)

// NodeRepository is the part of the node inventory the maintainer needs.
type NodeRepository interface {
	ActiveApplications(ctx context.Context) ([]types.ApplicationID, error)
	NodesOf(ctx context.Context, app types.ApplicationID, states ...types.NodeState) ([]types.Node, error)
	Lock(ctx context.Context, app types.ApplicationID) (nodes.Unlock, error)
}

// ApplicationMaintainer periodically redeploys every application with
// active nodes, so that changes to its nodes are picked up.
type ApplicationMaintainer struct {
	deployer      deploy.Deployer
	nodes         NodeRepository
	interval      time.Duration
	deployTimeout time.Duration
	activeApps    func(ctx context.Context) ([]types.ApplicationID, error)
	logger        log.Logger
}

var _ Job = (*ApplicationMaintainer)(nil)

// ApplicationMaintainerOption configures an ApplicationMaintainer.
type ApplicationMaintainerOption func(*ApplicationMaintainer)

// WithDeployTimeout sets the time budget of each redeployment.
func WithDeployTimeout(timeout time.Duration) ApplicationMaintainerOption {
	return func(m *ApplicationMaintainer) { m.deployTimeout = timeout }
}

// WithActiveApplications replaces how the applications to maintain are found.
func WithActiveApplications(fn func(ctx context.Context) ([]types.ApplicationID, error)) ApplicationMaintainerOption {
	return func(m *ApplicationMaintainer) { m.activeApps = fn }
}

func WithLogger(logger log.Logger) ApplicationMaintainerOption {
	return func(m *ApplicationMaintainer) { m.logger = logger }
}

// NewApplicationMaintainer creates a maintainer that runs every interval.
func NewApplicationMaintainer(deployer deploy.Deployer, repo NodeRepository, interval time.Duration, opts ...ApplicationMaintainerOption) *ApplicationMaintainer {
	m := &ApplicationMaintainer{
		deployer:      deployer,
		nodes:         repo,
		interval:      interval,
		deployTimeout: DefaultDeployTimeout,
		activeApps:    repo.ActiveApplications,
		logger:        log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("maintenance")
	return m
}

func (m *ApplicationMaintainer) Name() string { return ApplicationMaintainerName }

func (m *ApplicationMaintainer) Interval() time.Duration { return m.interval }

// Maintain redeploys each active application in turn. A failing application
// is logged and does not stop the others; only failing to find the
// applications is returned.
func (m *ApplicationMaintainer) Maintain(ctx context.Context) error {
	apps, err := m.activeApps(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active applications: %w", err)
	}

	for _, app := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.redeploy(ctx, app); err != nil {
			m.logger.Warn("Exception on maintenance redeploy of "+app.String(),
				log.Application(app.String()),
				log.Err(err))
		}
	}
	return nil
}

// redeploy redeploys app while holding its lock. Panics are returned as
// errors after the lock is released.
func (m *ApplicationMaintainer) redeploy(ctx context.Context, app types.ApplicationID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	unlock, err := m.nodes.Lock(ctx, app)
	if err != nil {
		return err
	}
	defer unlock()

	// The application may have lost its nodes since the snapshot was taken.
	active, err := m.nodes.NodesOf(ctx, app, types.NodeStateActive)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}

	deployment, err := m.deployer.DeployFromLocalActive(ctx, app, m.deployTimeout)
	if err != nil {
		return err
	}
	if deployment == nil {
		m.logger.Debug("Redeploy declined", log.Application(app.String()))
		return nil
	}

	deployCtx, cancel := context.WithTimeout(ctx, m.deployTimeout)
	defer cancel()

	if err := deployment.Prepare(deployCtx); err != nil {
		return fmt.Errorf("prepare failed: %w", err)
	}
	if err := deployment.Activate(deployCtx); err != nil {
		return fmt.Errorf("activate failed: %w", err)
	}

	m.logger.Info("Redeployed application", log.Application(app.String()), log.Int("activeNodes", len(active)))
	return nil
}
