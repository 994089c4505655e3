// Package store provides the state storage interface and its implementations.
package store

import (
	"context"
	"errors"
)

// ResourceType names a kind of stored resource. It is the first segment of
// every key.
type ResourceType string

const (
	ResourceTypeNode        ResourceType = "nodes"
	ResourceTypeApplication ResourceType = "applications"
)

// AllNamespaces selects every namespace of a resource type in List.
const AllNamespaces = "*"

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when creating a resource that exists.
	ErrAlreadyExists = errors.New("resource already exists")
)

// Store defines the interface for state storage operations.
type Store interface {
	// Open initializes and opens the store.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// Create creates a new resource.
	Create(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error

	// Get retrieves a resource by type, namespace, and name.
	Get(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error

	// List retrieves all resources of a given type in a namespace, ordered by key.
	List(ctx context.Context, resourceType ResourceType, namespace string, resource interface{}) error

	// Update updates an existing resource.
	Update(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error

	// Delete deletes a resource.
	Delete(ctx context.Context, resourceType ResourceType, namespace string, name string) error

	// Transaction executes multiple operations atomically. Nothing is
	// written if fn returns an error.
	Transaction(ctx context.Context, fn func(tx Transaction) error) error
}

// Transaction represents a store transaction.
type Transaction interface {
	Create(resourceType ResourceType, namespace string, name string, resource interface{}) error
	Get(resourceType ResourceType, namespace string, name string, resource interface{}) error
	Update(resourceType ResourceType, namespace string, name string, resource interface{}) error
	Delete(resourceType ResourceType, namespace string, name string) error
}

// IsNotFoundError checks if an error is a not found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExistsError checks if an error is an already exists error.
func IsAlreadyExistsError(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
