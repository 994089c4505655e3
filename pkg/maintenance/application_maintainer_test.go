package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rzbill/provision/pkg/deploy"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/nodes"
	"github.com/rzbill/provision/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	appA = types.ApplicationID{Tenant: "t", Application: "a", Instance: "default"}
	appB = types.ApplicationID{Tenant: "t", Application: "b", Instance: "default"}
)

type MockDeployer struct {
	mock.Mock
}

func (m *MockDeployer) DeployFromLocalActive(ctx context.Context, app types.ApplicationID, timeout time.Duration) (deploy.Deployment, error) {
	args := m.Called(app, timeout)
	deployment, _ := args.Get(0).(deploy.Deployment)
	return deployment, args.Error(1)
}

type MockDeployment struct {
	mock.Mock
}

func (m *MockDeployment) Prepare(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *MockDeployment) Activate(ctx context.Context) error {
	return m.Called().Error(0)
}

// fakeRepository hands out real locks and records how many are held.
type fakeRepository struct {
	active map[types.ApplicationID][]types.Node
	locks  *nodes.Locks
	err    error
}

func newFakeRepository(apps ...types.ApplicationID) *fakeRepository {
	r := &fakeRepository{active: make(map[types.ApplicationID][]types.Node), locks: nodes.NewLocks()}
	for _, app := range apps {
		r.active[app] = []types.Node{{Hostname: app.Application + "1", State: types.NodeStateActive}}
	}
	return r
}

func (r *fakeRepository) ActiveApplications(ctx context.Context) ([]types.ApplicationID, error) {
	if r.err != nil {
		return nil, r.err
	}
	var apps []types.ApplicationID
	for _, app := range []types.ApplicationID{appA, appB} {
		if _, ok := r.active[app]; ok {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func (r *fakeRepository) NodesOf(ctx context.Context, app types.ApplicationID, states ...types.NodeState) ([]types.Node, error) {
	return r.active[app], nil
}

func (r *fakeRepository) Lock(ctx context.Context, app types.ApplicationID) (nodes.Unlock, error) {
	return r.locks.Acquire(ctx, "application/"+app.String(), 50*time.Millisecond)
}

func TestMaintainRedeploysEveryApplication(t *testing.T) {
	repo := newFakeRepository(appA, appB)
	deployer := &MockDeployer{}
	deploymentA, deploymentB := &MockDeployment{}, &MockDeployment{}

	deployer.On("DeployFromLocalActive", appA, DefaultDeployTimeout).Return(deploymentA, nil)
	deployer.On("DeployFromLocalActive", appB, DefaultDeployTimeout).Return(deploymentB, nil)
	deploymentA.On("Prepare").Return(errors.New("out of capacity"))
	deploymentB.On("Prepare").Return(nil)
	deploymentB.On("Activate").Return(nil)

	logger := log.NewTestLogger()
	m := NewApplicationMaintainer(deployer, repo, time.Minute, WithLogger(logger))
	require.NoError(t, m.Maintain(context.Background()))

	deployer.AssertExpectations(t)
	deploymentA.AssertNotCalled(t, "Activate")
	deploymentB.AssertExpectations(t)

	warnings := logger.EntriesAt(log.WarnLevel)
	require.Len(t, warnings, 1)
	assert.Equal(t, "Exception on maintenance redeploy of "+appA.String(), warnings[0].Message)
	value, ok := warnings[0].Field("application")
	require.True(t, ok)
	assert.Equal(t, appA.String(), value)

	assert.False(t, repo.locks.IsHeld("application/"+appA.String()))
	assert.False(t, repo.locks.IsHeld("application/"+appB.String()))
}

func TestMaintainReleasesLockOnPanic(t *testing.T) {
	repo := newFakeRepository(appA, appB)
	deployer := &MockDeployer{}
	deploymentB := &MockDeployment{}

	deployer.On("DeployFromLocalActive", appA, mock.Anything).Run(func(mock.Arguments) {
		panic("deployer exploded")
	}).Return(nil, nil)
	deployer.On("DeployFromLocalActive", appB, mock.Anything).Return(deploymentB, nil)
	deploymentB.On("Prepare").Return(nil)
	deploymentB.On("Activate").Return(nil)

	logger := log.NewTestLogger()
	m := NewApplicationMaintainer(deployer, repo, time.Minute, WithLogger(logger))
	require.NoError(t, m.Maintain(context.Background()))

	assert.False(t, repo.locks.IsHeld("application/"+appA.String()))
	deploymentB.AssertExpectations(t)
	assert.True(t, logger.ContainsMessage("Exception on maintenance redeploy of "+appA.String()))

	unlock, err := repo.Lock(context.Background(), appA)
	require.NoError(t, err, "lock must be free after a panic")
	unlock()
}

func TestMaintainSkipsDeclinedAndInactiveApplications(t *testing.T) {
	repo := newFakeRepository(appA, appB)
	repo.active[appB] = nil

	deployer := &MockDeployer{}
	deployer.On("DeployFromLocalActive", appA, 5*time.Minute).Return(nil, nil)

	logger := log.NewTestLogger()
	m := NewApplicationMaintainer(deployer, repo, time.Minute, WithLogger(logger), WithDeployTimeout(5*time.Minute))
	require.NoError(t, m.Maintain(context.Background()))

	deployer.AssertExpectations(t)
	deployer.AssertNotCalled(t, "DeployFromLocalActive", appB, mock.Anything)
	assert.Empty(t, logger.EntriesAt(log.WarnLevel))
}

func TestMaintainLockTimeoutDoesNotAbortPass(t *testing.T) {
	repo := newFakeRepository(appA, appB)
	held, err := repo.Lock(context.Background(), appA)
	require.NoError(t, err)
	defer held()

	deployer := &MockDeployer{}
	deploymentB := &MockDeployment{}
	deployer.On("DeployFromLocalActive", appB, mock.Anything).Return(deploymentB, nil)
	deploymentB.On("Prepare").Return(nil)
	deploymentB.On("Activate").Return(nil)

	logger := log.NewTestLogger()
	m := NewApplicationMaintainer(deployer, repo, time.Minute, WithLogger(logger))
	require.NoError(t, m.Maintain(context.Background()))

	deployer.AssertNotCalled(t, "DeployFromLocalActive", appA, mock.Anything)
	deploymentB.AssertExpectations(t)
	assert.Len(t, logger.EntriesAt(log.WarnLevel), 1)
}

func TestMaintainReturnsSnapshotFailure(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("store unavailable")
	m := NewApplicationMaintainer(&MockDeployer{}, repo, time.Minute, WithLogger(log.NewTestLogger()))

	err := m.Maintain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestMaintainUsesInjectedApplications(t *testing.T) {
	repo := newFakeRepository(appA, appB)
	deployer := &MockDeployer{}
	deployer.On("DeployFromLocalActive", appB, mock.Anything).Return(nil, nil)

	m := NewApplicationMaintainer(deployer, repo, time.Minute,
		WithLogger(log.NewTestLogger()),
		WithActiveApplications(func(context.Context) ([]types.ApplicationID, error) {
			return []types.ApplicationID{appB}, nil
		}))
	require.NoError(t, m.Maintain(context.Background()))

	deployer.AssertExpectations(t)
	deployer.AssertNotCalled(t, "DeployFromLocalActive", appA, mock.Anything)
	assert.Equal(t, ApplicationMaintainerName, m.Name())
	assert.Equal(t, time.Minute, m.Interval())
}
