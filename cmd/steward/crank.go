package main

import (
	"context"

	"github.com/spf13/cobra"
)

var crankHistoryIndex int

var crankCmd = &cobra.Command{
	Use:   "crank",
	Short: "Drive individual steward instructions",
}

var computeScoreCmd = &cobra.Command{
	Use:   "compute-score",
	Short: "Run compute_score for one validator history index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.ComputeScore(crankHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var computeDelegationsCmd = &cobra.Command{
	Use:   "compute-delegations",
	Short: "Run compute_delegations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.ComputeDelegations(); err != nil {
			return err
		}
		return a.persist()
	},
}

var idleCmd = &cobra.Command{
	Use:   "idle",
	Short: "Run idle",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.Idle(); err != nil {
			return err
		}
		return a.persist()
	},
}

var computeInstantUnstakeCmd = &cobra.Command{
	Use:   "compute-instant-unstake",
	Short: "Run compute_instant_unstake for one validator history index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.ComputeInstantUnstake(crankHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var rebalanceCmd = &cobra.Command{
	Use:   "rebalance",
	Short: "Run rebalance for one validator history index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.Rebalance(context.Background(), crankHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var flagRuntimeEpoch uint64

var epochMaintenanceCmd = &cobra.Command{
	Use:   "epoch-maintenance",
	Short: "Run epoch_maintenance, advancing the epoch and draining deferred removals",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		validators, err := a.pl.ValidatorList(context.Background())
		if err != nil {
			return err
		}
		runtimeEpoch := flagRuntimeEpoch
		if runtimeEpoch < a.state.CurrentEpoch {
			runtimeEpoch = a.state.CurrentEpoch
		}
		if err := a.machine.EpochMaintenance(runtimeEpoch, len(validators), func(historyIndex int) error {
			a.pl.RemoveValidator(historyIndex)
			return nil
		}); err != nil {
			return err
		}
		return a.persist()
	},
}

func init() {
	computeScoreCmd.Flags().IntVar(&crankHistoryIndex, "history-index", 0, "validator history index")
	computeInstantUnstakeCmd.Flags().IntVar(&crankHistoryIndex, "history-index", 0, "validator history index")
	rebalanceCmd.Flags().IntVar(&crankHistoryIndex, "history-index", 0, "validator history index")
	epochMaintenanceCmd.Flags().Uint64Var(&flagRuntimeEpoch, "runtime-epoch", 0, "epoch reported by the runtime/pool, as of this call")

	crankCmd.AddCommand(computeScoreCmd, computeDelegationsCmd, idleCmd, computeInstantUnstakeCmd, rebalanceCmd, epochMaintenanceCmd)
	rootCmd.AddCommand(crankCmd)
}
