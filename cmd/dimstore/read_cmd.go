package main

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jacentio/dimstore/bus"
	"github.com/jacentio/dimstore/catalog"
)

func newReadCmd(a *app) *cobra.Command {
	var (
		where   map[string]string
		orderBy []string
	)

	cmd := &cobra.Command{
		Use:   "read <entity> [key]",
		Short: "Answer a read request the way the bus consumer does",
		Long:  "Without a key the entity is listed, optionally filtered with --where and ordered with --order-by.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := bus.ReadRequest{Entity: args[0], Op: bus.OpList, Where: where, OrderBy: orderBy}
			if len(args) == 2 {
				key, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid key %q", args[1])
				}
				req.Op, req.Key = bus.OpGet, key
			}

			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = b.close() }()

			c := bus.NewConsumer(bus.WithLogger(a.logger), bus.WithReadTimeout(a.cfg.Bus.ReadTimeout))
			bus.RegisterCatalog(c, catalog.NewRepositories(b))
			return writeJSON(cmd.OutOrStdout(), c.HandleRead(cmd.Context(), req))
		},
	}

	cmd.Flags().StringToStringVar(&where, "where", nil, "Field equality filters, e.g. --where oblast_id=3")
	cmd.Flags().StringSliceVar(&orderBy, "order-by", nil, "Fields to order by instead of the natural order")
	return cmd
}
