// Package storage persists StewardState and StewardConfig snapshots in
// an embedded badger store, standing in for the on-chain account the
// real program would read-modify-write.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/cycle"
)

// ErrNotFound is returned by Load* when no record exists yet for the
// given pool binding.
var ErrNotFound = errors.New("steward: no persisted record for this pool")

// Single-byte key prefixes namespace steward records within a badger
// store that may be shared with other consumers.
const (
	prefixConfig byte = 0x01
	prefixState  byte = 0x02
)

// Store is a badger-backed persistence layer for one pool's StewardState
// and StewardConfig. A Store is safe for concurrent use; badger
// transactions provide the serialization, mirroring the core's
// single-writer model at the storage layer.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open steward badger store at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func configKey(poolBinding string) []byte {
	return append([]byte{prefixConfig}, []byte(poolBinding)...)
}

func stateKey(poolBinding string) []byte {
	return append([]byte{prefixState}, []byte(poolBinding)...)
}

// SaveConfig persists cfg under poolBinding, overwriting any prior
// record.
func (s *Store) SaveConfig(poolBinding string, cfg *config.Config) error {
	val, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("could not encode steward config: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(configKey(poolBinding), val)
	})
	if err != nil {
		return fmt.Errorf("could not persist steward config: %w", err)
	}
	return nil
}

// LoadConfig retrieves the persisted config for poolBinding, or
// ErrNotFound if none has been saved yet.
func (s *Store) LoadConfig(poolBinding string) (*config.Config, error) {
	var cfg config.Config
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(configKey(poolBinding))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not look up steward config: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cfg)
		})
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveState persists state under poolBinding, overwriting any prior
// record. Callers are expected to call this after every committed
// instruction, the in-process analogue of the on-chain runtime
// persisting an account write.
func (s *Store) SaveState(poolBinding string, state *cycle.State) error {
	val, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("could not encode steward state: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey(poolBinding), val)
	})
	if err != nil {
		return fmt.Errorf("could not persist steward state: %w", err)
	}
	return nil
}

// LoadState retrieves the persisted state for poolBinding, or
// ErrNotFound if none has been saved yet.
func (s *Store) LoadState(poolBinding string) (*cycle.State, error) {
	var state cycle.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(poolBinding))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("could not look up steward state: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}
