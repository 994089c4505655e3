package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rzbill/provision/pkg/log"
)

// Validate that BadgerStore implements the Store interface
var _ Store = &BadgerStore{}

// BadgerStore implements the Store interface using BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	path     string
	inMemory bool
	logger   log.Logger
}

// BadgerOption configures a BadgerStore.
type BadgerOption func(*BadgerStore)

// WithInMemory keeps all data in memory. The path given to Open is ignored.
func WithInMemory() BadgerOption {
	return func(s *BadgerStore) {
		s.inMemory = true
	}
}

// NewBadgerStore creates a new BadgerDB-backed store.
func NewBadgerStore(logger log.Logger, opts ...BadgerOption) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	s := &BadgerStore{logger: logger.WithComponent("store")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the BadgerDB database.
func (s *BadgerStore) Open(path string) error {
	s.path = path

	opts := badger.DefaultOptions(path)
	if s.inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogAdapter{logger: s.logger}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	s.db = db

	s.logger.Info("Store opened", log.Str("path", path), log.Bool("inMemory", s.inMemory))
	return nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("Closing store", log.Str("path", s.path))
	err := s.db.Close()
	s.db = nil
	return err
}

// Create creates a new resource.
func (s *BadgerStore) Create(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error {
	s.logger.Debug("Creating resource",
		log.Any("resourceType", resourceType),
		log.Str("namespace", namespace),
		log.Str("name", name))

	return s.Transaction(ctx, func(tx Transaction) error {
		return tx.Create(resourceType, namespace, name, resource)
	})
}

// Get retrieves a resource.
func (s *BadgerStore) Get(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		return getItem(txn, resourceType, namespace, name, resource)
	})
}

// Update updates an existing resource.
func (s *BadgerStore) Update(ctx context.Context, resourceType ResourceType, namespace string, name string, resource interface{}) error {
	s.logger.Debug("Updating resource",
		log.Any("resourceType", resourceType),
		log.Str("namespace", namespace),
		log.Str("name", name))

	return s.Transaction(ctx, func(tx Transaction) error {
		return tx.Update(resourceType, namespace, name, resource)
	})
}

// Delete deletes a resource.
func (s *BadgerStore) Delete(ctx context.Context, resourceType ResourceType, namespace string, name string) error {
	s.logger.Debug("Deleting resource",
		log.Any("resourceType", resourceType),
		log.Str("namespace", namespace),
		log.Str("name", name))

	return s.Transaction(ctx, func(tx Transaction) error {
		return tx.Delete(resourceType, namespace, name)
	})
}

// List retrieves all resources of a given type in a namespace.
func (s *BadgerStore) List(ctx context.Context, resourceType ResourceType, namespace string, resource interface{}) error {
	var values []json.RawMessage
	prefix := MakePrefix(resourceType, namespace)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read resource: %w", err)
			}
			values = append(values, val)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Found resources", log.Any("resourceType", resourceType), log.Int("count", len(values)))
	return unmarshalList(values, resource)
}

// Transaction executes multiple operations in a single transaction.
func (s *BadgerStore) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := fn(&BadgerTransaction{txn: txn}); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// BadgerTransaction implements the Transaction interface.
type BadgerTransaction struct {
	txn *badger.Txn
}

// Create creates a resource within the transaction.
func (t *BadgerTransaction) Create(resourceType ResourceType, namespace string, name string, resource interface{}) error {
	key := MakeKey(resourceType, namespace, name)

	_, err := t.txn.Get(key)
	if err == nil {
		return alreadyExists(resourceType, namespace, name)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check existing resource: %w", err)
	}
	return setItem(t.txn, key, resource)
}

// Get retrieves a resource within the transaction.
func (t *BadgerTransaction) Get(resourceType ResourceType, namespace string, name string, resource interface{}) error {
	return getItem(t.txn, resourceType, namespace, name, resource)
}

// Update updates a resource within the transaction.
func (t *BadgerTransaction) Update(resourceType ResourceType, namespace string, name string, resource interface{}) error {
	key := MakeKey(resourceType, namespace, name)

	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(resourceType, namespace, name)
	} else if err != nil {
		return fmt.Errorf("failed to check existing resource: %w", err)
	}
	return setItem(t.txn, key, resource)
}

// Delete deletes a resource within the transaction.
func (t *BadgerTransaction) Delete(resourceType ResourceType, namespace string, name string) error {
	key := MakeKey(resourceType, namespace, name)

	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(resourceType, namespace, name)
	} else if err != nil {
		return fmt.Errorf("failed to check existing resource: %w", err)
	}

	if err := t.txn.Delete(key); err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return nil
}

func getItem(txn *badger.Txn, resourceType ResourceType, namespace, name string, resource interface{}) error {
	item, err := txn.Get(MakeKey(resourceType, namespace, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound(resourceType, namespace, name)
	} else if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, resource)
	})
}

func setItem(txn *badger.Txn, key []byte, resource interface{}) error {
	data, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("failed to serialize resource: %w", err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("failed to store resource: %w", err)
	}
	return nil
}

// badgerLogAdapter adapts our logger to BadgerDB's logger interface.
type badgerLogAdapter struct {
	logger log.Logger
}

func (l *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(badgerMessage(format, args...))
}

func (l *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(badgerMessage(format, args...))
}

// Badger is chatty at info level; its info lines are logged as debug.
func (l *badgerLogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug(badgerMessage(format, args...))
}

func (l *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(badgerMessage(format, args...))
}

func badgerMessage(format string, args ...interface{}) string {
	return "BadgerDB: " + strings.TrimSpace(fmt.Sprintf(format, args...))
}
