// Read-only reporting subcommands for operational visibility.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Read-only inspection of steward state and config",
}

var showStateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current phase and per-cycle counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		phase := a.machine.GetPhase()
		fmt.Printf("phase: %s\n", phase)
		fmt.Printf("current_epoch: %d\n", a.state.CurrentEpoch)
		fmt.Printf("cycle_start_epoch: %d\n", a.state.CycleStartEpoch)
		fmt.Printf("num_pool_validators: %d\n", a.state.NumPoolValidators)
		fmt.Printf("scoring_unstake_total: %d\n", a.state.ScoringUnstakeTotal)
		fmt.Printf("instant_unstake_total: %d\n", a.state.InstantUnstakeTotal)
		fmt.Printf("stake_deposit_unstake_total: %d\n", a.state.StakeDepositUnstakeTotal)
		fmt.Printf("paused: %t\n", a.cfg.Paused)
		return nil
	},
}

var showScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print one validator's packed score and raw_score",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		score, rawScore, ok := a.machine.ScoreOf(flagHistoryIndex)
		if !ok {
			return fmt.Errorf("history index %d is not a current pool member", flagHistoryIndex)
		}
		fmt.Printf("history_index: %d\n", flagHistoryIndex)
		fmt.Printf("score: %d\n", score)
		fmt.Printf("raw_score: %d\n", rawScore)
		return nil
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the persisted StewardConfig",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		c := a.cfg
		fmt.Printf("pool_binding: %s\n", c.PoolBinding)
		fmt.Printf("minimum_stake_lamports: %d\n", c.MinimumStakeLamports)
		fmt.Printf("num_delegation_validators: %d\n", c.NumDelegationValidators)
		fmt.Printf("num_epochs_between_scoring: %d\n", c.NumEpochsBetweenScoring)
		fmt.Printf("commission_threshold: %d\n", c.CommissionThreshold)
		fmt.Printf("mev_commission_bps_threshold: %d\n", c.MevCommissionBpsThreshold)
		fmt.Printf("scoring_unstake_cap_bps: %d\n", c.ScoringUnstakeCapBps)
		fmt.Printf("instant_unstake_cap_bps: %d\n", c.InstantUnstakeCapBps)
		fmt.Printf("stake_deposit_unstake_cap_bps: %d\n", c.StakeDepositUnstakeCapBps)
		fmt.Printf("admin_authority: %s\n", c.AdminAuthority)
		fmt.Printf("parameters_authority: %s\n", c.ParametersAuthority)
		fmt.Printf("blacklist_authority: %s\n", c.BlacklistAuthority)
		fmt.Printf("paused: %t\n", c.Paused)
		return nil
	},
}

func init() {
	showScoreCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	showCmd.AddCommand(showStateCmd, showScoreCmd, showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
