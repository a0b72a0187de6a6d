package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jito-foundation/steward-core/internal/steward/config"
)

var (
	flagDBDir          string
	flagPoolBinding    string
	flagHistoryFixture string
	flagPoolFixture    string
	flagLogLevel       string

	v   = viper.New()
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Crank and administer a decentralized stake-pool steward",
}

// Execute runs the root command, exiting nonzero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&flagDBDir, "db-dir", "steward-data", "badger directory for persisted StewardState/StewardConfig")
	pflags.StringVar(&flagPoolBinding, "pool-binding", "default", "identifier of the pool this invocation governs")
	pflags.StringVar(&flagHistoryFixture, "history-fixture", "history-fixture.json", "path to the validator/cluster history fixture")
	pflags.StringVar(&flagPoolFixture, "pool-fixture", "pool-fixture.json", "path to the pool membership/lamports fixture")
	pflags.StringVar(&flagLogLevel, "log-level", "info", "zerolog level: debug, info, warn, error")

	if err := config.BindFlags(pflags, v); err != nil {
		panic(err)
	}
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	v.AutomaticEnv()

	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = zerolog.New(zerolog.NewConsoleWriter()).
		Level(level).
		With().
		Timestamp().
		Str("app", "steward").
		Logger()
}
