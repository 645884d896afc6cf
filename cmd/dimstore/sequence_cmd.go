package main

import (
	"github.com/spf13/cobra"
)

type sequenceOutput struct {
	Sequence string `json:"sequence"`
	Value    int64  `json:"value"`
}

func newSequenceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect and advance named sequences",
	}

	next := &cobra.Command{
		Use:   "next <name>",
		Short: "Allocate and print the next value of a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = b.close() }()

			v, err := b.AllocateNext(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sequenceOutput{Sequence: args[0], Value: v})
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the last value issued by a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.openBackend(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = b.close() }()

			c, err := b.Counter(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), sequenceOutput{Sequence: c.Name, Value: c.Value})
		},
	}

	cmd.AddCommand(next, show)
	return cmd
}
