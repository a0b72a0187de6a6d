package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jito-foundation/steward-core/internal/steward/clock"
	"github.com/jito-foundation/steward-core/internal/steward/config"
	"github.com/jito-foundation/steward-core/internal/steward/cycle"
	"github.com/jito-foundation/steward-core/internal/steward/history"
	"github.com/jito-foundation/steward-core/internal/steward/metrics"
	"github.com/jito-foundation/steward-core/internal/steward/pool"
	"github.com/jito-foundation/steward-core/internal/steward/storage"
)

// app bundles the process-lifetime collaborators one CLI invocation
// wires together: persisted config/state via badger, the history and
// pool fixtures, and a manual clock whose runtime facts are persisted
// alongside the fixtures so consecutive one-shot invocations see a
// consistent slot/epoch.
type app struct {
	store   *storage.Store
	cfg     *config.Config
	state   *cycle.State
	hist    *history.Store
	pl      *pool.Fixture
	clk     *clock.Manual
	machine *cycle.Machine
}

type runtimeFixture struct {
	Slot             uint64 `json:"slot"`
	EpochStartSlot   uint64 `json:"epoch_start_slot"`
	EpochLengthSlots uint64 `json:"epoch_length_slots"`
}

func runtimeFixturePath() string {
	return flagDBDir + "/runtime.json"
}

func loadRuntimeFixture() runtimeFixture {
	data, err := os.ReadFile(runtimeFixturePath())
	if err != nil {
		return runtimeFixture{EpochLengthSlots: 432_000}
	}
	var rf runtimeFixture
	if err := json.Unmarshal(data, &rf); err != nil {
		return runtimeFixture{EpochLengthSlots: 432_000}
	}
	return rf
}

func saveRuntimeFixture(rf runtimeFixture) error {
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(runtimeFixturePath(), data, 0o644)
}

// openApp wires a fresh app from the flags bound on rootCmd, creating
// fixtures/db on first use and loading persisted state otherwise.
func openApp() (*app, error) {
	if err := os.MkdirAll(flagDBDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create db dir: %w", err)
	}

	store, err := storage.Open(flagDBDir)
	if err != nil {
		return nil, err
	}

	cfg, err := store.LoadConfig(flagPoolBinding)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		cfg = config.FromViper(v, config.Default())
		cfg.PoolBinding = flagPoolBinding
		if err := store.SaveConfig(flagPoolBinding, cfg); err != nil {
			return nil, err
		}
	}

	state, err := store.LoadState(flagPoolBinding)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		state = cycle.NewState(config.MaxValidators)
		if err := store.SaveState(flagPoolBinding, state); err != nil {
			return nil, err
		}
	}

	hist, err := history.LoadFixture(flagHistoryFixture)
	if err != nil {
		hist = history.NewStore()
	}

	pl, err := pool.LoadFixture(flagPoolFixture)
	if err != nil {
		pl = pool.NewFixture(0)
	}

	rf := loadRuntimeFixture()
	clk := clock.NewManual(rf.EpochLengthSlots)
	clk.Advance(rf.Slot, rf.EpochStartSlot)

	machine := cycle.NewMachine(cfg, state, hist, pl, metrics.NewNoopCollector(), log, clk)

	return &app{store: store, cfg: cfg, state: state, hist: hist, pl: pl, clk: clk, machine: machine}, nil
}

// persist writes every mutable collaborator back to disk. Call after
// any command that may have changed config, state, or the fixtures.
func (a *app) persist() error {
	if err := a.store.SaveConfig(flagPoolBinding, a.cfg); err != nil {
		return err
	}
	if err := a.store.SaveState(flagPoolBinding, a.state); err != nil {
		return err
	}
	if err := a.hist.SaveFixture(flagHistoryFixture); err != nil {
		return err
	}
	if err := a.pl.SaveFixture(flagPoolFixture); err != nil {
		return err
	}
	return nil
}

func (a *app) close() error {
	return a.store.Close()
}
