package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/catalog"
	"github.com/jacentio/dimstore/internal/logging"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the counter table and one table per dimension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = b.close() }()

			start := time.Now()
			if err := b.migrate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("schema migrated",
				zap.Int(logging.FieldCount, len(catalog.All())),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		},
	}
}
