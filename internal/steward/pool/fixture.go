package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Fixture is a local, JSON-persisted Pool implementation standing in
// for the real on-chain ExternalStakePool, for the CLI and
// keeper to drive against outside of a live cluster. It is dev/test
// scaffolding, not part of the core contract: the core only ever
// depends on the Pool interface in pool.go.
type Fixture struct {
	mu sync.RWMutex

	reserveLamports uint64
	validators      map[int]*Snapshot
}

// NewFixture constructs an empty Fixture with the given reserve.
func NewFixture(reserveLamports uint64) *Fixture {
	return &Fixture{
		reserveLamports: reserveLamports,
		validators:      make(map[int]*Snapshot),
	}
}

// AddValidator registers historyIndex with the given starting position.
func (f *Fixture) AddValidator(historyIndex int, activeLamports, transientLamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validators[historyIndex] = &Snapshot{
		HistoryIndex:      historyIndex,
		ActiveLamports:    activeLamports,
		TransientLamports: transientLamports,
	}
}

// SetReserve sets the fixture's reserve lamports directly, for seeding
// a CLI dev scenario.
func (f *Fixture) SetReserve(reserveLamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveLamports = reserveLamports
}

// RemoveValidator drops historyIndex from the fixture's membership,
// mirroring the pool's validator_list shrinking after EpochMaintenance
// drains a removal.
func (f *Fixture) RemoveValidator(historyIndex int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.validators, historyIndex)
}

func (f *Fixture) ValidatorList(ctx context.Context) ([]int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]int, 0, len(f.validators))
	for idx := range f.validators {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func (f *Fixture) Snapshot(ctx context.Context, historyIndex int) (Snapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.validators[historyIndex]
	if !ok {
		return Snapshot{}, fmt.Errorf("pool fixture: no validator at history index %d", historyIndex)
	}
	return *s, nil
}

func (f *Fixture) TotalValueLocked(ctx context.Context) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	total := f.reserveLamports
	for _, s := range f.validators {
		total += s.ActiveLamports + s.TransientLamports
	}
	return total, nil
}

func (f *Fixture) ReserveLamports(ctx context.Context) (uint64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.reserveLamports, nil
}

func (f *Fixture) RequestIncrease(ctx context.Context, historyIndex int, amount uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.validators[historyIndex]
	if !ok {
		return fmt.Errorf("pool fixture: no validator at history index %d", historyIndex)
	}
	if amount > f.reserveLamports {
		return fmt.Errorf("pool fixture: requested increase %d exceeds reserve %d", amount, f.reserveLamports)
	}
	f.reserveLamports -= amount
	s.TransientLamports += amount
	return nil
}

func (f *Fixture) RequestDecrease(ctx context.Context, historyIndex int, amount uint64, reason DecreaseReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.validators[historyIndex]
	if !ok {
		return fmt.Errorf("pool fixture: no validator at history index %d", historyIndex)
	}
	if amount > s.ActiveLamports {
		amount = s.ActiveLamports
	}
	s.ActiveLamports -= amount
	s.TransientLamports += amount
	return nil
}

// wireFixture is the JSON persistence form of a Fixture.
type wireFixture struct {
	ReserveLamports uint64      `json:"reserve_lamports"`
	Validators      []Snapshot `json:"validators"`
}

// SaveFixture writes f's contents to path as JSON.
func (f *Fixture) SaveFixture(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	w := wireFixture{ReserveLamports: f.reserveLamports}
	for _, s := range f.validators {
		w.Validators = append(w.Validators, *s)
	}
	sort.Slice(w.Validators, func(i, j int) bool { return w.Validators[i].HistoryIndex < w.Validators[j].HistoryIndex })
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode pool fixture: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFixture loads a Fixture previously written by SaveFixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read pool fixture: %w", err)
	}
	var w wireFixture
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("could not decode pool fixture: %w", err)
	}
	f := NewFixture(w.ReserveLamports)
	for _, s := range w.Validators {
		f.validators[s.HistoryIndex] = &Snapshot{
			HistoryIndex:      s.HistoryIndex,
			ActiveLamports:    s.ActiveLamports,
			TransientLamports: s.TransientLamports,
		}
	}
	return f, nil
}
