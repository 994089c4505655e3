// Package patch applies partial JSON updates to nodes.
//
// A patch is a JSON object mapping field names to new values. Fields are
// applied one at a time in document order. Patching a host may also update
// its children, so a patch returns every node it changed, target first.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rzbill/provision/pkg/clock"
	"github.com/rzbill/provision/pkg/types"
)

// NodeLister lists every node in the inventory.
type NodeLister interface {
	ListNodes() ([]types.Node, error)
}

// NodeListerFunc adapts a function to a NodeLister.
type NodeListerFunc func() ([]types.Node, error)

// ListNodes calls f.
func (f NodeListerFunc) ListNodes() ([]types.Node, error) { return f() }

// StaticNodes is a NodeLister over a fixed snapshot.
func StaticNodes(nodes ...types.Node) NodeLister {
	return NodeListerFunc(func() ([]types.Node, error) { return nodes, nil })
}

// inventory lists the nodes at most once.
type inventory struct {
	nodes func() ([]types.Node, error)
}

func newInventory(lister NodeLister) *inventory {
	return &inventory{nodes: sync.OnceValues(lister.ListNodes)}
}

// ErrAlreadyApplied is returned by a second call to Apply.
var ErrAlreadyApplied = errors.New("patch has already been applied")

// Patcher applies one patch document to one node. A Patcher is single use
// and not safe for concurrent use; callers serialize patches per node.
type Patcher struct {
	flavors   types.FlavorResolver
	root      Value
	inventory *inventory
	patched   *patchedNodes
	clock     clock.Clock
	applied   bool
}

// NewPatcher reads the patch document from body and prepares it for node.
// nodes is consulted lazily, at most once, for children and IP checks.
func NewPatcher(flavors types.FlavorResolver, body io.Reader, node types.Node, nodes NodeLister, clk clock.Clock) (*Patcher, error) {
	root, err := Decode(body)
	if err != nil {
		return nil, types.WrapValidationError(err, "could not read patch")
	}
	if root.Kind() != KindObject {
		return nil, types.NewValidationErrorf("patch must be a JSON object, got a %s", root.Kind())
	}
	if clk == nil {
		clk = clock.Real()
	}

	inv := newInventory(nodes)
	return &Patcher{
		flavors:   flavors,
		root:      root,
		inventory: inv,
		patched:   newPatchedNodes(node, inv),
		clock:     clk,
	}, nil
}

// NewPatcherFromBytes is NewPatcher for an in-memory document.
func NewPatcherFromBytes(flavors types.FlavorResolver, body []byte, node types.Node, nodes NodeLister, clk clock.Clock) (*Patcher, error) {
	return NewPatcher(flavors, bytes.NewReader(body), node, nodes, clk)
}

// Apply applies the patch and returns every affected node: the target
// first, then any changed children in hostname order. On error no nodes
// are returned.
func (p *Patcher) Apply() ([]types.Node, error) {
	if p.applied {
		return nil, ErrAlreadyApplied
	}
	p.applied = true

	for _, member := range p.root.Members() {
		if err := p.applyMember(member); err != nil {
			return nil, err
		}
	}
	return p.patched.result(), nil
}

func (p *Patcher) applyMember(member Member) error {
	name := member.Name

	rule, known := fieldRules[name]
	if !known {
		return types.WrapValidationError(
			fmt.Errorf("Could not apply field '%s' on a node: No such modifiable field", name),
			"Could not set field '%s'", name)
	}

	updated, err := rule.apply(p, p.patched.node(), member.Value, false)
	if err != nil {
		return fieldError(name, err)
	}
	p.patched.update(updated)

	if !rule.recursive {
		return nil
	}
	children, err := p.patched.children()
	if err != nil {
		return fmt.Errorf("could not list children of %s: %w", p.patched.hostname, err)
	}
	for _, child := range children {
		updated, err := rule.apply(p, child, member.Value, true)
		if err != nil {
			return fieldError(name, err)
		}
		p.patched.update(updated)
	}
	return nil
}

// fieldError names the field in err. Failures of the inventory lookup are
// not validation errors and are wrapped as they are.
func fieldError(name string, err error) error {
	var inventoryErr *inventoryError
	if errors.As(err, &inventoryErr) {
		return fmt.Errorf("Could not set field '%s': %w", name, inventoryErr.err)
	}
	return types.WrapValidationError(err, "Could not set field '%s'", name)
}

type inventoryError struct {
	err error
}

func (e *inventoryError) Error() string { return e.err.Error() }

func (e *inventoryError) Unwrap() error { return e.err }

// allNodes returns the memoized inventory.
func (p *Patcher) allNodes() ([]types.Node, error) {
	nodes, err := p.inventory.nodes()
	if err != nil {
		return nil, &inventoryError{err: err}
	}
	return nodes, nil
}
