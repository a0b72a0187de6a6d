package main

import (
	"github.com/spf13/cobra"

	"github.com/jito-foundation/steward-core/internal/steward/cycle"
)

var (
	flagVoteAccountExists bool
	flagAge               uint32
	flagStakeLamports     uint64
	flagConsecutiveDelinquentEpochs int
)

var membershipCmd = &cobra.Command{
	Use:   "membership",
	Short: "Permissionless pool-membership instructions",
}

var autoAddCmd = &cobra.Command{
	Use:   "auto-add",
	Short: "Run auto_add_validator_from_pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		candidate := cycle.MembershipCandidate{
			HistoryIndex:      flagHistoryIndex,
			VoteAccountExists: flagVoteAccountExists,
			Age:               flagAge,
			StakeLamports:     flagStakeLamports,
		}
		if err := a.machine.AutoAddValidatorFromPool(candidate); err != nil {
			return err
		}
		return a.persist()
	},
}

var autoRemoveCmd = &cobra.Command{
	Use:   "auto-remove",
	Short: "Run auto_remove_validator_from_pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		candidate := cycle.MembershipCandidate{
			HistoryIndex:                flagHistoryIndex,
			VoteAccountExists:           flagVoteAccountExists,
			ConsecutiveDelinquentEpochs: flagConsecutiveDelinquentEpochs,
		}
		if err := a.machine.AutoRemoveValidatorFromPool(candidate); err != nil {
			return err
		}
		return a.persist()
	},
}

func init() {
	for _, c := range []*cobra.Command{autoAddCmd, autoRemoveCmd} {
		c.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
		c.Flags().BoolVar(&flagVoteAccountExists, "vote-account-exists", true, "whether the validator's vote account is currently open")
	}
	autoAddCmd.Flags().Uint32Var(&flagAge, "age", 0, "epochs of recorded history for this validator")
	autoAddCmd.Flags().Uint64Var(&flagStakeLamports, "stake-lamports", 0, "validator's current activated stake")
	autoRemoveCmd.Flags().IntVar(&flagConsecutiveDelinquentEpochs, "consecutive-delinquent-epochs", 0, "consecutive epochs the validator has been delinquent")

	membershipCmd.AddCommand(autoAddCmd, autoRemoveCmd)
	rootCmd.AddCommand(membershipCmd)
}
