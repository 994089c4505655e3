// Package nodes is the node inventory: a repository of nodes over the
// store, the application locks that serialize changes to them, and the
// locked entry point for patching.
package nodes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/log"
	"github.com/rzbill/provision/pkg/patch"
	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/store/repos"
	"github.com/rzbill/provision/pkg/types"
	"github.com/samber/lo"
)

// Namespace is the store namespace holding all nodes.
const Namespace = "default"

// DefaultLockTimeout bounds how long lock acquisition waits.
const DefaultLockTimeout = 10 * time.Second

const unallocatedLockKey = "unallocated"

// maxLockAttempts bounds retries when a node changes owner while its lock
// is being taken.
const maxLockAttempts = 3

// Repository stores nodes and serializes changes to them per application.
type Repository struct {
	nodes       *repos.BaseRepo[types.Node]
	flavors     types.FlavorResolver
	locks       *Locks
	clock       clock.Clock
	logger      log.Logger
	lockTimeout time.Duration
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithClock sets the clock used to stamp history.
func WithClock(c clock.Clock) RepositoryOption {
	return func(r *Repository) { r.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = logger }
}

// WithLockTimeout sets how long Lock waits before failing.
func WithLockTimeout(timeout time.Duration) RepositoryOption {
	return func(r *Repository) { r.lockTimeout = timeout }
}

// NewRepository creates a node repository over core.
func NewRepository(core store.Store, flavors types.FlavorResolver, opts ...RepositoryOption) *Repository {
	r := &Repository{
		nodes:       repos.NewBaseRepo[types.Node](core, store.ResourceTypeNode),
		flavors:     flavors,
		locks:       NewLocks(),
		clock:       clock.Real(),
		logger:      log.GetDefaultLogger(),
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithComponent("nodes")
	return r
}

// AddNodes validates and stores new nodes in one transaction. It fails if
// any hostname exists or any address collides with another node.
func (r *Repository) AddNodes(ctx context.Context, nodes ...types.Node) error {
	existing, err := r.Nodes(ctx)
	if err != nil {
		return err
	}

	inventory := append([]types.Node(nil), existing...)
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.Hostname] {
			return types.NewValidationErrorf("duplicate node %s", n.Hostname)
		}
		seen[n.Hostname] = true
		if err := types.VerifyIPConfig(n, inventory); err != nil {
			return err
		}
		inventory = append(inventory, n)
	}

	err = r.nodes.Transaction(ctx, func(tx *repos.Tx[types.Node]) error {
		for i := range nodes {
			n := nodes[i]
			if len(n.History) == 0 {
				n.History = types.History{}.With(types.EventProvisioned, types.AgentOperator, r.clock.Now())
			}
			if err := tx.Create(Namespace, n.Hostname, &n); err != nil {
				if store.IsAlreadyExistsError(err) {
					return types.NewValidationErrorf("node %s already exists", n.Hostname)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("Added nodes", log.Int("count", len(nodes)))
	return nil
}

// Node returns the node with the given hostname.
func (r *Repository) Node(ctx context.Context, hostname string) (types.Node, error) {
	n, err := r.nodes.Get(ctx, Namespace, hostname)
	if err != nil {
		return types.Node{}, fmt.Errorf("node %s: %w", hostname, err)
	}
	return *n, nil
}

// Nodes returns the nodes in any of the given states, or all nodes if no
// state is given, ordered by hostname.
func (r *Repository) Nodes(ctx context.Context, states ...types.NodeState) ([]types.Node, error) {
	all, err := r.nodes.List(ctx, Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(states) == 0 {
		return all, nil
	}
	return lo.Filter(all, func(n types.Node, _ int) bool {
		return lo.Contains(states, n.State)
	}), nil
}

// NodesOf returns the nodes allocated to app in any of the given states.
func (r *Repository) NodesOf(ctx context.Context, app types.ApplicationID, states ...types.NodeState) ([]types.Node, error) {
	nodes, err := r.Nodes(ctx, states...)
	if err != nil {
		return nil, err
	}
	return lo.Filter(nodes, func(n types.Node, _ int) bool {
		return n.IsOwnedBy(app)
	}), nil
}

// ChildrenOf returns the nodes whose parent is hostname.
func (r *Repository) ChildrenOf(ctx context.Context, hostname string) ([]types.Node, error) {
	nodes, err := r.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(nodes, func(n types.Node, _ int) bool {
		return n.ParentHostname == hostname
	}), nil
}

// ActiveApplications returns the distinct owners of active nodes.
func (r *Repository) ActiveApplications(ctx context.Context) ([]types.ApplicationID, error) {
	active, err := r.Nodes(ctx, types.NodeStateActive)
	if err != nil {
		return nil, err
	}
	owners := lo.Uniq(lo.FilterMap(active, func(n types.Node, _ int) (types.ApplicationID, bool) {
		if n.Allocation == nil {
			return types.ApplicationID{}, false
		}
		return n.Allocation.Owner, true
	}))
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })
	return owners, nil
}

// Write validates and stores existing nodes in one transaction.
func (r *Repository) Write(ctx context.Context, nodes ...types.Node) error {
	for _, n := range nodes {
		if err := n.Validate(); err != nil {
			return err
		}
	}
	return r.nodes.Transaction(ctx, func(tx *repos.Tx[types.Node]) error {
		for i := range nodes {
			if err := tx.Update(Namespace, nodes[i].Hostname, &nodes[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Lock takes the lock of app.
func (r *Repository) Lock(ctx context.Context, app types.ApplicationID) (Unlock, error) {
	return r.locks.Acquire(ctx, applicationLockKey(app), r.lockTimeout)
}

// LockUnallocated takes the lock guarding nodes that have no owner.
func (r *Repository) LockUnallocated(ctx context.Context) (Unlock, error) {
	return r.locks.Acquire(ctx, unallocatedLockKey, r.lockTimeout)
}

func applicationLockKey(app types.ApplicationID) string {
	return "application/" + app.String()
}

func lockKeyOf(n types.Node) string {
	if n.Allocation == nil {
		return unallocatedLockKey
	}
	return applicationLockKey(n.Allocation.Owner)
}

// errOwnerChanged is returned internally when a node changed hands while
// its lock was being taken.
var errOwnerChanged = errors.New("node changed owner while locking")

// lockNode takes the lock owning hostname and returns the node as read
// under that lock.
func (r *Repository) lockNode(ctx context.Context, hostname string) (types.Node, Unlock, error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		n, err := r.Node(ctx, hostname)
		if err != nil {
			return types.Node{}, nil, err
		}
		key := lockKeyOf(n)
		unlock, err := r.locks.Acquire(ctx, key, r.lockTimeout)
		if err != nil {
			return types.Node{}, nil, err
		}

		locked, err := r.Node(ctx, hostname)
		if err != nil {
			unlock()
			return types.Node{}, nil, err
		}
		if lockKeyOf(locked) == key {
			return locked, unlock, nil
		}
		unlock()
	}
	return types.Node{}, nil, fmt.Errorf("node %s: %w", hostname, errOwnerChanged)
}

// SetState moves a node to state under the lock owning it.
func (r *Repository) SetState(ctx context.Context, hostname string, state types.NodeState, agent types.Agent) (types.Node, error) {
	n, unlock, err := r.lockNode(ctx, hostname)
	if err != nil {
		return types.Node{}, err
	}
	defer unlock()

	moved := n.WithState(state, agent, r.clock.Now())
	if err := r.Write(ctx, moved); err != nil {
		return types.Node{}, err
	}
	r.logger.Info("Node state changed",
		log.Hostname(hostname),
		log.Str("from", string(n.State)),
		log.Str("to", string(state)),
		log.Str("agent", string(agent)))
	return moved, nil
}

// Patch applies a patch document to a node under the lock owning it and
// writes every affected node in one transaction.
func (r *Repository) Patch(ctx context.Context, hostname string, body io.Reader) ([]types.Node, error) {
	data, err := io.ReadAll(io.LimitReader(body, patch.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading request body: %w", err)
	}

	n, unlock, err := r.lockNode(ctx, hostname)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot := patch.NodeListerFunc(func() ([]types.Node, error) {
		return r.Nodes(ctx)
	})
	p, err := patch.NewPatcher(r.flavors, bytes.NewReader(data), n, snapshot, r.clock)
	if err != nil {
		return nil, err
	}
	patched, err := p.Apply()
	if err != nil {
		r.logger.Debug("Patch rejected", log.Hostname(hostname), log.Err(err))
		return nil, err
	}
	if err := r.Write(ctx, patched...); err != nil {
		return nil, err
	}

	r.logger.Info("Patched node", log.Hostname(hostname), log.Int("affected", len(patched)))
	return patched, nil
}
