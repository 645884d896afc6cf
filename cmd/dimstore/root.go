package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/internal/config"
	"github.com/jacentio/dimstore/internal/logging"
)

// app is the state shared by subcommands once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "dimstore",
		Short:         "Labor-market dimension store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper(cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			a.cfg, err = config.Load(v)
			if err != nil {
				return err
			}
			a.logger, err = logging.New(a.cfg.Log.Level, a.cfg.Log.JSON)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (TOML, YAML or JSON)")
	flags.String("backend", "", "Storage backend: dynamodb, postgres or sqlite")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	cmd.AddCommand(
		newMigrateCmd(a),
		newSequenceCmd(a),
		newReadCmd(a),
		newLambdaCmd(a),
	)
	return cmd
}

// bindFlags lets explicitly set flags override file and environment.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for key, name := range map[string]string{
		"backend":   "backend",
		"log.level": "log-level",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
