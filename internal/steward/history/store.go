package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	stewerrors "github.com/jito-foundation/steward-core/internal/steward/errors"
)

// Store is an in-process HistorySource: the validator-history and
// cluster-history ring buffers plus the freshness/authority fields
// cycle.Machine's instruction handlers read. In a live deployment this
// data is owned by the external validator-history program; Store is the
// in-process stand-in the CLI and keeper drive against.
type Store struct {
	mu sync.RWMutex

	cluster          *ClusterHistory
	clusterFreshness uint64
	validators       map[int]*record
}

type record struct {
	history                        *ValidatorHistory
	lastUpdateSlot                 uint64
	merkleRootAuthority             uint8
	priorityFeeMerkleRootAuthority  uint8
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		cluster:    NewClusterHistory(),
		validators: make(map[int]*record),
	}
}

// EnsureValidator registers historyIndex if not already present.
func (s *Store) EnsureValidator(historyIndex int, voteAccount string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.validators[historyIndex]; !ok {
		s.validators[historyIndex] = &record{history: NewValidatorHistory(historyIndex, voteAccount)}
	}
}

// PushValidatorEntry appends entry to historyIndex's ring buffer.
func (s *Store) PushValidatorEntry(historyIndex int, entry ValidatorEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.validators[historyIndex]
	if !ok {
		return
	}
	r.history.Entries.Push(entry)
}

// PushClusterEntry appends entry to the cluster ring buffer.
func (s *Store) PushClusterEntry(entry ClusterEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cluster.Entries.Push(entry)
}

// SetFreshness records the last gossip-sourced update slot for
// historyIndex, used by the Idle->ComputeInstantUnstake freshness check.
func (s *Store) SetFreshness(historyIndex int, slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.validators[historyIndex]; ok {
		r.lastUpdateSlot = slot
	}
}

// SetAuthorities records the merkle-root and priority-fee merkle-root
// upload authority identifiers for historyIndex.
func (s *Store) SetAuthorities(historyIndex int, merkleRoot, priorityFeeMerkleRoot uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.validators[historyIndex]; ok {
		r.merkleRootAuthority = merkleRoot
		r.priorityFeeMerkleRootAuthority = priorityFeeMerkleRoot
	}
}

// SetClusterFreshness records the cluster history writer's last update
// slot, tracked separately since it is not keyed by validator.
func (s *Store) SetClusterFreshness(slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clusterFreshness = slot
}

// View implements cycle.HistorySource.
func (s *Store) View(historyIndex int) (*View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.validators[historyIndex]
	if !ok {
		return nil, stewerrors.InvalidIndexError{Index: historyIndex, Bound: len(s.validators)}
	}
	return NewView(r.history, s.cluster), nil
}

func (s *Store) ValidatorLastUpdateSlot(historyIndex int) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.validators[historyIndex]; ok {
		return r.lastUpdateSlot
	}
	return 0
}

func (s *Store) ClusterLastUpdateSlot() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clusterFreshness
}

func (s *Store) MerkleRootAuthority(historyIndex int) uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.validators[historyIndex]; ok {
		return r.merkleRootAuthority
	}
	return 0
}

func (s *Store) PriorityFeeMerkleRootAuthority(historyIndex int) uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.validators[historyIndex]; ok {
		return r.priorityFeeMerkleRootAuthority
	}
	return 0
}

// wireRecord/wireStore give Store a JSON persistence form for the CLI's
// local dev fixtures, analogous to the on-chain program's accounts but
// not part of the core contract itself.
type wireRecord struct {
	HistoryIndex                   int              `json:"history_index"`
	VoteAccount                    string           `json:"vote_account"`
	Entries                        []ValidatorEntry `json:"entries"`
	LastUpdateSlot                 uint64           `json:"last_update_slot"`
	MerkleRootAuthority             uint8            `json:"merkle_root_authority"`
	PriorityFeeMerkleRootAuthority  uint8            `json:"priority_fee_merkle_root_authority"`
}

type wireStore struct {
	Cluster          []ClusterEntry `json:"cluster"`
	ClusterFreshness uint64         `json:"cluster_freshness"`
	Validators       []wireRecord   `json:"validators"`
}

// SaveFixture writes the store's contents to path as JSON.
func (s *Store) SaveFixture(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := wireStore{ClusterFreshness: s.clusterFreshness}
	s.cluster.Entries.All(func(e ClusterEntry) { w.Cluster = append(w.Cluster, e) })
	for idx, r := range s.validators {
		wr := wireRecord{
			HistoryIndex:                   idx,
			VoteAccount:                    r.history.VoteAccount,
			LastUpdateSlot:                 r.lastUpdateSlot,
			MerkleRootAuthority:             r.merkleRootAuthority,
			PriorityFeeMerkleRootAuthority:  r.priorityFeeMerkleRootAuthority,
		}
		r.history.Entries.All(func(e ValidatorEntry) { wr.Entries = append(wr.Entries, e) })
		w.Validators = append(w.Validators, wr)
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode history fixture: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFixture loads a Store previously written by SaveFixture.
func LoadFixture(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read history fixture: %w", err)
	}
	var w wireStore
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("could not decode history fixture: %w", err)
	}
	s := NewStore()
	s.clusterFreshness = w.ClusterFreshness
	for _, e := range w.Cluster {
		s.cluster.Entries.Push(e)
	}
	for _, wr := range w.Validators {
		s.EnsureValidator(wr.HistoryIndex, wr.VoteAccount)
		r := s.validators[wr.HistoryIndex]
		r.lastUpdateSlot = wr.LastUpdateSlot
		r.merkleRootAuthority = wr.MerkleRootAuthority
		r.priorityFeeMerkleRootAuthority = wr.PriorityFeeMerkleRootAuthority
		for _, e := range wr.Entries {
			r.history.Entries.Push(e)
		}
	}
	return s, nil
}
