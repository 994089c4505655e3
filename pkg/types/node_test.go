package types

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	testApp = ApplicationID{Tenant: "t", Application: "a", Instance: "default"}
)

func testNode(state NodeState) Node {
	n := Node{
		Hostname: "n1",
		Type:     NodeTypeTenant,
		State:    state,
		Flavor:   Flavor{Name: "d", Type: FlavorTypeContainer},
	}
	if state.RequiresAllocation() {
		n.Allocation = &Allocation{Owner: testApp}
	}
	return n
}

func TestNodeValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(n Node) Node
		wantErr string
	}{
		{"valid", func(n Node) Node { return n }, ""},
		{"no hostname", func(n Node) Node { n.Hostname = ""; return n }, "hostname is required"},
		{"bad type", func(n Node) Node { n.Type = "robot"; return n }, "unknown node type"},
		{"bad state", func(n Node) Node { n.State = "sleeping"; return n }, "unknown node state"},
		{"own parent", func(n Node) Node { n.ParentHostname = n.Hostname; return n }, "its own parent"},
		{"active without allocation", func(n Node) Node { n.Allocation = nil; return n }, "must be allocated"},
		{"ready with allocation", func(n Node) Node { n.State = NodeStateReady; return n }, "cannot be allocated"},
		{"bad owner", func(n Node) Node { n.Allocation = &Allocation{}; return n }, "empty part"},
		{"image on bare metal", func(n Node) Node {
			n.Flavor.Type = FlavorTypeBareMetal
			n.Status.DockerImage = "docker.io/library/vespa:8"
			return n
		}, "docker image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(testNode(NodeStateActive)).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWithStateKeepsAllocationInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genState := gen.IntRange(0, len(AllNodeStates)-1).Map(func(i int) NodeState { return AllNodeStates[i] })

	properties.Property("a node moved to a state never carries an allocation it cannot hold", prop.ForAll(
		func(from, to NodeState) bool {
			n := testNode(from)
			if from.IsAllocated() {
				n.Allocation = &Allocation{Owner: testApp}
			}
			moved := n.WithState(to, AgentSystem, testNow)
			if moved.Allocation != nil && !to.IsAllocated() {
				return false
			}
			if from != to {
				event, ok := moved.History.Event(stateEvents[to])
				return ok && event.At.Equal(testNow)
			}
			return true
		},
		genState, genState,
	))

	properties.TestingRun(t)
}

func TestWithStateRecordsDeallocation(t *testing.T) {
	active := testNode(NodeStateActive)

	dirty := active.WithState(NodeStateDirty, AgentSystem, testNow)
	assert.Nil(t, dirty.Allocation)
	event, ok := dirty.History.Event(EventDeallocated)
	require.True(t, ok)
	assert.Equal(t, AgentSystem, event.Agent)

	failed := active.WithState(NodeStateFailed, AgentSystem, testNow)
	assert.NotNil(t, failed.Allocation)
	_, ok = failed.History.Event(EventDeallocated)
	assert.False(t, ok)
}

func TestWithMethodsDoNotModifyOriginal(t *testing.T) {
	n := testNode(NodeStateActive)
	n.IPConfig = IPConfig{Primary: []string{"10.0.0.1"}}

	changed := n.WithFailCount(3).
		WithIPConfig(IPConfig{Primary: []string{"10.0.0.2"}}).
		WithReports(Reports{}.With(Report{ID: "r", Type: ReportTypeSoftFail})).
		WithWantToRetire(true, true, AgentOperator, testNow)

	assert.Equal(t, 0, n.Status.FailCount)
	assert.Equal(t, []string{"10.0.0.1"}, n.IPConfig.Primary)
	assert.Empty(t, n.Reports)
	assert.Empty(t, n.History)
	assert.Equal(t, 3, changed.Status.FailCount)
	assert.True(t, changed.Status.WantToDeprovision)

	clone := changed.Clone()
	clone.IPConfig.Primary[0] = "10.9.9.9"
	clone.Allocation.Membership.Cluster = "other"
	assert.Equal(t, "10.0.0.2", changed.IPConfig.Primary[0])
	assert.Empty(t, changed.Allocation.Membership.Cluster)
}

func TestGenerationsAndHistory(t *testing.T) {
	n := testNode(NodeStateActive)

	rebooted := n.WithCurrentRebootGeneration(2, testNow)
	assert.Equal(t, int64(2), rebooted.Status.Reboot.Current)
	_, ok := rebooted.History.Event(EventRebooted)
	assert.True(t, ok)

	same := rebooted.WithCurrentRebootGeneration(2, testNow.Add(time.Hour))
	event, _ := same.History.Event(EventRebooted)
	assert.Equal(t, testNow, event.At, "no new event without a generation increase")

	restarted, err := n.WithCurrentRestartGeneration(4, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(4), restarted.Allocation.Restart.Current)
	assert.Zero(t, n.Allocation.Restart.Current)

	_, err = testNode(NodeStateReady).WithCurrentRestartGeneration(1, testNow)
	assert.Contains(t, err.Error(), "not allocated")

	upgraded := n.WithCurrentOsVersion("8.1.0", testNow)
	_, ok = upgraded.History.Event(EventOsUpgraded)
	assert.True(t, ok)

	retired := n.WithWantToRetire(false, false, AgentOperator, testNow)
	_, ok = retired.History.Event(EventWantToRetire)
	assert.False(t, ok, "unchanged flags record no event")
}

func TestDockerImageRequiresContainer(t *testing.T) {
	n := testNode(NodeStateActive)
	withImage, err := n.WithCurrentDockerImage("docker.io/vespa:8")
	require.NoError(t, err)
	assert.Equal(t, "docker.io/vespa:8", withImage.Status.DockerImage)

	n.Flavor.Type = FlavorTypeBareMetal
	_, err = n.WithCurrentDockerImage("docker.io/vespa:8")
	assert.True(t, IsValidationError(err))
}

func TestReports(t *testing.T) {
	var reports Reports
	assert.False(t, reports.HasHardFail())

	withSoft := reports.With(Report{ID: "b", Type: ReportTypeSoftFail})
	withHard := withSoft.With(Report{ID: "a", Type: ReportTypeHardFail})
	assert.False(t, withSoft.HasHardFail())
	assert.True(t, withHard.HasHardFail())
	assert.Equal(t, []string{"a", "b"}, withHard.IDs())
	assert.False(t, withHard.Without("a").HasHardFail())
	assert.Len(t, withSoft, 1)

	_, err := ParseReportType("MELTDOWN")
	assert.Error(t, err)
}

func TestApplicationID(t *testing.T) {
	id, err := ParseApplicationID("tenant:app")
	require.NoError(t, err)
	assert.Equal(t, ApplicationID{Tenant: "tenant", Application: "app", Instance: "default"}, id)
	assert.Equal(t, "tenant:app:default", id.String())

	_, err = ParseApplicationID("tenant")
	assert.True(t, IsValidationError(err))
	_, err = ParseApplicationID("tenant::x")
	assert.True(t, IsValidationError(err))
	_, err = NewApplicationID("te nant", "app", "")
	assert.Error(t, err)

	var parsed ApplicationID
	require.NoError(t, parsed.UnmarshalText([]byte("a:b:c")))
	text, err := parsed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "a:b:c", string(text))
	assert.True(t, ApplicationID{}.IsZero())
}
