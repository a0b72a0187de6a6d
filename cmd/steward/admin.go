package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jito-foundation/steward-core/internal/steward/config"
)

func parsePatchJSON(raw string) (config.Patch, error) {
	var p config.Patch
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return config.Patch{}, fmt.Errorf("could not parse --patch as a config.Patch: %w", err)
	}
	if err := p.Validate(); err != nil {
		return config.Patch{}, err
	}
	return p, nil
}

var (
	flagSigner         string
	flagHistoryIndex   int
	flagAuthorityRole  string
	flagNewKey         string
	flagNewCapacity    int
	flagPatchJSON      string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Privileged instructions gated by one of the three authorities",
}

func parseAuthority(role string) (config.Authority, error) {
	switch role {
	case "admin":
		return config.AuthorityAdmin, nil
	case "parameters":
		return config.AuthorityParameters, nil
	case "blacklist":
		return config.AuthorityBlacklist, nil
	default:
		return 0, &invalidAuthorityError{role}
	}
}

type invalidAuthorityError struct{ role string }

func (e *invalidAuthorityError) Error() string {
	return "unknown authority role " + strconv.Quote(e.role) + ": want admin, parameters, or blacklist"
}

var setAuthorityCmd = &cobra.Command{
	Use:   "set-authority",
	Short: "Run set_authority",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := parseAuthority(flagAuthorityRole)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.SetAuthority(flagSigner, role, flagNewKey); err != nil {
			return err
		}
		return a.persist()
	},
}

var addToBlacklistCmd = &cobra.Command{
	Use:   "add-to-blacklist",
	Short: "Run add_to_blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.AddToBlacklist(flagSigner, flagHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var removeFromBlacklistCmd = &cobra.Command{
	Use:   "remove-from-blacklist",
	Short: "Run remove_from_blacklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.RemoveFromBlacklist(flagSigner, flagHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Run pause",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.Pause(flagSigner); err != nil {
			return err
		}
		return a.persist()
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Run resume",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.Resume(flagSigner); err != nil {
			return err
		}
		return a.persist()
	},
}

var resetStateCmd = &cobra.Command{
	Use:   "reset-state",
	Short: "Run reset_state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.ResetState(flagSigner); err != nil {
			return err
		}
		return a.persist()
	},
}

var resizeCapacityCmd = &cobra.Command{
	Use:   "resize-validator-capacity",
	Short: "Grow the steward's addressable validator capacity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.ResizeValidatorCapacity(flagSigner, flagNewCapacity); err != nil {
			return err
		}
		return a.persist()
	},
}

var instantRemoveValidatorCmd = &cobra.Command{
	Use:   "instant-remove-validator",
	Short: "Run instant_remove_validator",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.InstantRemoveValidator(flagSigner, flagHistoryIndex); err != nil {
			return err
		}
		return a.persist()
	},
}

var updateParametersCmd = &cobra.Command{
	Use:   "update-parameters",
	Short: "Run update_parameters from a JSON-encoded config.Patch",
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := parsePatchJSON(flagPatchJSON)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.machine.UpdateParameters(flagSigner, patch); err != nil {
			return err
		}
		return a.persist()
	},
}

func init() {
	for _, c := range []*cobra.Command{setAuthorityCmd, addToBlacklistCmd, removeFromBlacklistCmd, pauseCmd,
		resumeCmd, resetStateCmd, resizeCapacityCmd, instantRemoveValidatorCmd, updateParametersCmd} {
		c.Flags().StringVar(&flagSigner, "signer", "", "key signing this admin instruction")
	}

	setAuthorityCmd.Flags().StringVar(&flagAuthorityRole, "role", "admin", "admin, parameters, or blacklist")
	setAuthorityCmd.Flags().StringVar(&flagNewKey, "new-key", "", "new authority key")

	addToBlacklistCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	removeFromBlacklistCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")
	instantRemoveValidatorCmd.Flags().IntVar(&flagHistoryIndex, "history-index", 0, "validator history index")

	resizeCapacityCmd.Flags().IntVar(&flagNewCapacity, "new-capacity", 0, "new validator capacity, must not shrink")

	updateParametersCmd.Flags().StringVar(&flagPatchJSON, "patch", "{}", "JSON-encoded config.Patch")

	adminCmd.AddCommand(setAuthorityCmd, addToBlacklistCmd, removeFromBlacklistCmd, pauseCmd, resumeCmd,
		resetStateCmd, resizeCapacityCmd, instantRemoveValidatorCmd, updateParametersCmd)
	rootCmd.AddCommand(adminCmd)
}
