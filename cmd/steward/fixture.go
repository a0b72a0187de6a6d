// fixture.go holds local dev-environment seeding commands used to
// stand up a scenario without a live cluster.
package main

import (
	"github.com/spf13/cobra"

	"github.com/jito-foundation/steward-core/internal/steward/history"
)

var (
	flagVoteAccount       string
	flagEpoch             uint16
	flagActivatedStake    uint64
	flagCommission        uint8
	flagMevCommissionBps  uint16
	flagEpochCredits      uint32
	flagEpochCreditsNull  bool
	flagIsSuperminority   bool
	flagTotalBlocks       uint32
	flagReserveLamports   uint64
	flagActiveLamports    uint64
	flagTransientLamports uint64
	flagSlot              uint64
	flagEpochStartSlot    uint64
	flagEpochLengthSlots  uint64
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Seed local history/pool/runtime fixtures for development",
}

var fixtureAddValidatorCmd = &cobra.Command{
	Use:   "add-validator",
	Short: "Register a validator in both the history and pool fixtures",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		a.hist.EnsureValidator(flagHistoryIndex, flagVoteAccount)
		a.pl.AddValidator(flagHistoryIndex, flagActiveLamports, flagTransientLamports)
		return a.persist()
	},
}

var fixturePushValidatorEntryCmd = &cobra.Command{
	Use:   "push-validator-entry",
	Short: "Append one ValidatorHistoryEntry for a validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		entry := history.ValidatorEntry{
			Epoch:            flagEpoch,
			ActivatedStake:   flagActivatedStake,
			Commission:       flagCommission,
			MevCommissionBps: flagMevCommissionBps,
			IsSuperminority:  flagIsSuperminority,
		}
		if !flagEpochCreditsNull {
			credits := flagEpochCredits
			entry.EpochCredits = &credits
		}
		a.hist.PushValidatorEntry(flagHistoryIndex, entry)
		return a.persist()
	},
}

var fixturePushClusterEntryCmd = &cobra.Command{
	Use:   "push-cluster-entry",
	Short: "Append one ClusterHistoryEntry",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		a.hist.PushClusterEntry(history.ClusterEntry{Epoch: flagEpoch, TotalBlocks: flagTotalBlocks})
		return a.persist()
	},
}

var fixtureSetFreshnessCmd = &cobra.Command{
	Use:   "set-freshness",
	Short: "Set a validator's (or, with --cluster, the cluster's) last-update slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if flagClusterFreshness {
			a.hist.SetClusterFreshness(flagSlot)
		} else {
			a.hist.SetFreshness(flagHistoryIndex, flagSlot)
		}
		return a.persist()
	},
}

var flagClusterFreshness bool

var fixtureSetReserveCmd = &cobra.Command{
	Use:   "set-reserve",
	Short: "Set the pool fixture's reserve lamports",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		a.pl.SetReserve(flagReserveLamports)
		return a.persist()
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Advance the manual runtime clock used by subsequent crank calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		rf := runtimeFixture{Slot: flagSlot, EpochStartSlot: flagEpochStartSlot, EpochLengthSlots: flagEpochLengthSlots}
		return saveRuntimeFixture(rf)
	},
}

func init() {
	fixtureAddValidatorCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	fixtureAddValidatorCmd.Flags().StringVar(&flagVoteAccount, "vote-account", "", "vote account identifier")
	fixtureAddValidatorCmd.Flags().Uint64Var(&flagActiveLamports, "active-lamports", 0, "starting active stake")
	fixtureAddValidatorCmd.Flags().Uint64Var(&flagTransientLamports, "transient-lamports", 0, "starting transient stake")

	fixturePushValidatorEntryCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	fixturePushValidatorEntryCmd.Flags().Uint16Var(&flagEpoch, "epoch", 0, "entry epoch")
	fixturePushValidatorEntryCmd.Flags().Uint64Var(&flagActivatedStake, "activated-stake", 0, "activated stake at this epoch")
	fixturePushValidatorEntryCmd.Flags().Uint8Var(&flagCommission, "commission", 0, "commission percent")
	fixturePushValidatorEntryCmd.Flags().Uint16Var(&flagMevCommissionBps, "mev-commission-bps", 0, "MEV commission in bps")
	fixturePushValidatorEntryCmd.Flags().Uint32Var(&flagEpochCredits, "epoch-credits", 0, "epoch credits earned")
	fixturePushValidatorEntryCmd.Flags().BoolVar(&flagEpochCreditsNull, "epoch-credits-null", false, "record epoch_credits as null instead of the given value")
	fixturePushValidatorEntryCmd.Flags().BoolVar(&flagIsSuperminority, "is-superminority", false, "mark this entry as superminority")

	fixturePushClusterEntryCmd.Flags().Uint16Var(&flagEpoch, "epoch", 0, "entry epoch")
	fixturePushClusterEntryCmd.Flags().Uint32Var(&flagTotalBlocks, "total-blocks", 0, "cluster total blocks for this epoch")

	fixtureSetFreshnessCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	fixtureSetFreshnessCmd.Flags().Uint64Var(&flagSlot, "slot", 0, "last-update slot")
	fixtureSetFreshnessCmd.Flags().BoolVar(&flagClusterFreshness, "cluster", false, "set the cluster's freshness instead of a validator's")

	fixtureSetReserveCmd.Flags().Uint64Var(&flagReserveLamports, "reserve-lamports", 0, "pool reserve lamports")

	tickCmd.Flags().Uint64Var(&flagSlot, "slot", 0, "current slot")
	tickCmd.Flags().Uint64Var(&flagEpochStartSlot, "epoch-start-slot", 0, "slot at which the current epoch began")
	tickCmd.Flags().Uint64Var(&flagEpochLengthSlots, "epoch-length-slots", 432_000, "slots per epoch")

	fixtureCmd.AddCommand(fixtureAddValidatorCmd, fixturePushValidatorEntryCmd, fixturePushClusterEntryCmd,
		fixtureSetFreshnessCmd, fixtureSetReserveCmd)
	rootCmd.AddCommand(fixtureCmd, tickCmd)
}
