// Package cli implements the quarry command-line tool: migration
// verbs, seeding and source scaffolding.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quarrydb/quarry/adapter"
	"github.com/quarrydb/quarry/config"
)

type app struct {
	configPath string
	connection string
	verbose    bool

	log zerolog.Logger
}

// NewRoot builds the root command with every subcommand attached.
func NewRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "quarry",
		Short:         "Database toolkit: migrations, seeding and scaffolding",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := zerolog.InfoLevel
			if a.verbose {
				level = zerolog.DebugLevel
			}
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to quarry.yaml")
	root.PersistentFlags().StringVar(&a.connection, "connection", "", "named connection to use")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.migrateCmd())
	root.AddCommand(a.seedCmd())
	root.AddCommand(a.makeCmd())
	return root
}

// Execute runs the CLI and returns a process exit code.
func Execute() int {
	root := NewRoot()
	if err := root.Execute(); err != nil {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		logger.Error().Err(err).Msg("quarry")
		return 1
	}
	return 0
}

// open loads configuration and returns a connected adapter for the
// selected connection, wrapped with debug logging in verbose mode.
func (a *app) open(cmd *cobra.Command) (adapter.Adapter, *config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	ad, err := cfg.Open(a.connection)
	if err != nil {
		return nil, nil, err
	}
	if err := ad.Connect(cmd.Context()); err != nil {
		return nil, nil, err
	}
	if a.verbose {
		ad = adapter.Debug(ad, a.log)
	}
	return ad, cfg, nil
}
