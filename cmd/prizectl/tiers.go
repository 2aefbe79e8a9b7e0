package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/tiers"
)

func newTiersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers <contest-id> <engagement|creativity>",
		Short: "Print the resolved prize tiers of a leaderboard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[1])
			if err != nil {
				return err
			}
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Contest(cmd.Context(), args[0]); err != nil {
				return err
			}
			configured, err := store.PrizeTiers(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResolution(cmd, tiers.ResolveKind(configured, kind))
			return nil
		},
	}
}

func printResolution(cmd *cobra.Command, res tiers.Resolution) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANKS\tLABEL\tAMOUNT\tGROUP")
	for _, t := range res.Tiers {
		fmt.Fprintf(w, "%d-%d\t%s\t%.2f\t%t\n", t.RankMin, t.RankMax, t.Label, t.Amount, t.Group)
	}
	for _, d := range res.Dropped {
		fmt.Fprintf(w, "%d-%d\t%s\t%.2f\tdropped: %s\n", d.RankMin, d.RankMax, d.Tier.Label, d.Tier.Amount, d.Reason)
	}
	fmt.Fprintf(w, "\t\ttotal %.2f\t\n", tiers.TotalPool(res.Tiers))
	_ = w.Flush()
}
