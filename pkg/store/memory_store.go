package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Validate that MemoryStore implements the Store interface
var _ Store = &MemoryStore{}

// MemoryStore is an in-memory implementation of the Store interface, used
// in tests and by the CLI's dry runs. Values are stored as JSON so callers
// never share memory with the store.
type MemoryStore struct {
	data  map[string][]byte
	mutex sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Open is a no-op for the memory store.
func (m *MemoryStore) Open(path string) error {
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// Get retrieves an object from the memory store.
func (m *MemoryStore) Get(ctx context.Context, resourceType ResourceType, namespace, name string, value interface{}) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return (&memoryTransaction{data: m.data}).Get(resourceType, namespace, name, value)
}

// List lists objects from the memory store in key order.
func (m *MemoryStore) List(ctx context.Context, resourceType ResourceType, namespace string, value interface{}) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	prefix := string(MakePrefix(resourceType, namespace))
	keys := make([]string, 0)
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		values = append(values, m.data[k])
	}
	return unmarshalList(values, value)
}

// Create creates an object in the memory store.
func (m *MemoryStore) Create(ctx context.Context, resourceType ResourceType, namespace, name string, value interface{}) error {
	return m.Transaction(ctx, func(tx Transaction) error {
		return tx.Create(resourceType, namespace, name, value)
	})
}

// Update updates an object in the memory store.
func (m *MemoryStore) Update(ctx context.Context, resourceType ResourceType, namespace, name string, value interface{}) error {
	return m.Transaction(ctx, func(tx Transaction) error {
		return tx.Update(resourceType, namespace, name, value)
	})
}

// Delete deletes an object from the memory store.
func (m *MemoryStore) Delete(ctx context.Context, resourceType ResourceType, namespace, name string) error {
	return m.Transaction(ctx, func(tx Transaction) error {
		return tx.Delete(resourceType, namespace, name)
	})
}

// Transaction runs fn against a private copy of the data and swaps it in
// when fn succeeds.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	staged := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		staged[k] = v
	}
	if err := fn(&memoryTransaction{data: staged}); err != nil {
		return err
	}
	m.data = staged
	return nil
}

type memoryTransaction struct {
	data map[string][]byte
}

func (t *memoryTransaction) Create(resourceType ResourceType, namespace, name string, value interface{}) error {
	key := string(MakeKey(resourceType, namespace, name))
	if _, exists := t.data[key]; exists {
		return alreadyExists(resourceType, namespace, name)
	}
	return t.set(key, value)
}

func (t *memoryTransaction) Get(resourceType ResourceType, namespace, name string, value interface{}) error {
	data, ok := t.data[string(MakeKey(resourceType, namespace, name))]
	if !ok {
		return notFound(resourceType, namespace, name)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to unmarshal into target type: %w", err)
	}
	return nil
}

func (t *memoryTransaction) Update(resourceType ResourceType, namespace, name string, value interface{}) error {
	key := string(MakeKey(resourceType, namespace, name))
	if _, exists := t.data[key]; !exists {
		return notFound(resourceType, namespace, name)
	}
	return t.set(key, value)
}

func (t *memoryTransaction) Delete(resourceType ResourceType, namespace, name string) error {
	key := string(MakeKey(resourceType, namespace, name))
	if _, exists := t.data[key]; !exists {
		return notFound(resourceType, namespace, name)
	}
	delete(t.data, key)
	return nil
}

func (t *memoryTransaction) set(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize resource: %w", err)
	}
	t.data[key] = data
	return nil
}
