package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jito-foundation/steward-core/internal/steward/keeper"
)

var (
	flagTickInterval     time.Duration
	flagSweepConcurrency int
	flagPersistInterval  time.Duration
)

var keeperCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Run the autonomous cranker loop until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		k := keeper.New(a.machine, a.pl, keeper.Config{
			TickInterval:     flagTickInterval,
			SweepConcurrency: flagSweepConcurrency,
			RuntimeEpoch:     func() uint64 { return a.state.CurrentEpoch },
			ValidatorListLen: func() int {
				validators, err := a.pl.ValidatorList(context.Background())
				if err != nil {
					return len(a.state.HistoryIndices)
				}
				return len(validators)
			},
			RemoveFromPool: func(historyIndex int) error {
				a.pl.RemoveValidator(historyIndex)
				return nil
			},
		}, log)

		ctx, cancel := context.WithCancel(context.Background())
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sig
			log.Info().Msg("received shutdown signal, stopping keeper")
			cancel()
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			k.Start(ctx)
		}()

		persistTicker := time.NewTicker(flagPersistInterval)
		defer persistTicker.Stop()
		for {
			select {
			case <-done:
				return a.persist()
			case <-persistTicker.C:
				if err := a.persist(); err != nil {
					log.Warn().Err(err).Msg("periodic persist failed")
				}
			}
		}
	},
}

func init() {
	keeperCmd.Flags().DurationVar(&flagTickInterval, "tick-interval", time.Second, "how often the keeper inspects phase and drives the next instruction")
	keeperCmd.Flags().IntVar(&flagSweepConcurrency, "sweep-concurrency", 8, "bounded concurrency for per-validator sweeps")
	keeperCmd.Flags().DurationVar(&flagPersistInterval, "persist-interval", 5*time.Second, "how often in-memory state is flushed to the badger store and fixtures")
	rootCmd.AddCommand(keeperCmd)
}
