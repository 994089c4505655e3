// Package repos provides typed repositories over the core store.
package repos

import (
	"context"

	"github.com/rzbill/provision/pkg/store"
)

// BaseRepo provides common CRUD over the core store for a specific resource type.
// T is the typed payload struct (e.g., types.Node).
type BaseRepo[T any] struct {
	core         store.Store
	resourceType store.ResourceType
}

func NewBaseRepo[T any](core store.Store, rt store.ResourceType) *BaseRepo[T] {
	return &BaseRepo[T]{core: core, resourceType: rt}
}

func (r *BaseRepo[T]) Create(ctx context.Context, namespace, name string, obj *T) error {
	return r.core.Create(ctx, r.resourceType, namespace, name, obj)
}

func (r *BaseRepo[T]) Get(ctx context.Context, namespace, name string) (*T, error) {
	var out T
	if err := r.core.Get(ctx, r.resourceType, namespace, name, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *BaseRepo[T]) Update(ctx context.Context, namespace, name string, obj *T) error {
	return r.core.Update(ctx, r.resourceType, namespace, name, obj)
}

func (r *BaseRepo[T]) Delete(ctx context.Context, namespace, name string) error {
	return r.core.Delete(ctx, r.resourceType, namespace, name)
}

// List returns the items of a namespace, or of all namespaces for store.AllNamespaces.
func (r *BaseRepo[T]) List(ctx context.Context, namespace string) ([]T, error) {
	var items []T
	if err := r.core.List(ctx, r.resourceType, namespace, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Transaction runs fn with a typed view of a store transaction.
func (r *BaseRepo[T]) Transaction(ctx context.Context, fn func(tx *Tx[T]) error) error {
	return r.core.Transaction(ctx, func(tx store.Transaction) error {
		return fn(&Tx[T]{tx: tx, resourceType: r.resourceType})
	})
}

func (r *BaseRepo[T]) Core() store.Store { return r.core }

// Tx is a typed view of a store transaction.
type Tx[T any] struct {
	tx           store.Transaction
	resourceType store.ResourceType
}

func (t *Tx[T]) Create(namespace, name string, obj *T) error {
	return t.tx.Create(t.resourceType, namespace, name, obj)
}

func (t *Tx[T]) Get(namespace, name string) (*T, error) {
	var out T
	if err := t.tx.Get(t.resourceType, namespace, name, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Tx[T]) Update(namespace, name string, obj *T) error {
	return t.tx.Update(t.resourceType, namespace, name, obj)
}

func (t *Tx[T]) Delete(namespace, name string) error {
	return t.tx.Delete(t.resourceType, namespace, name)
}
