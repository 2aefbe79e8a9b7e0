package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/prizeboard/internal/domain/model"
	"github.com/okian/prizeboard/internal/domain/settlement"
	"github.com/okian/prizeboard/pkg/logger"
)

const defaultParallel = 4

type settleOptions struct {
	parallel int
	dryRun   bool
}

func newSettleCmd(opts *globalOptions) *cobra.Command {
	so := &settleOptions{}

	cmd := &cobra.Command{
		Use:   "settle [contest-id...]",
		Short: "Credit prizes for ended contests",
		Long: `settle credits every prize owed for the given contests, or for every
contest whose deadline has passed when none are named. Contests settle in
parallel. Rerunning is safe: credits already in the ledger are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			return runSettle(cmd, store, so, args)
		},
	}

	cmd.Flags().IntVar(&so.parallel, "parallel", defaultParallel, "contests settled concurrently")
	cmd.Flags().BoolVar(&so.dryRun, "dry-run", false, "list the contests that would be settled")
	return cmd
}

// contestStore is what settle needs from the repository.
type contestStore interface {
	settlement.ContestSource
	settlement.Ledger
	Contest(ctx context.Context, id string) (model.Contest, error)
}

func runSettle(cmd *cobra.Command, store contestStore, so *settleOptions, ids []string) error {
	ctx := cmd.Context()
	now := time.Now()
	log := logger.Get().Named("prizectl")

	contests, err := selectContests(ctx, store, ids, now)
	if err != nil {
		return err
	}
	if so.dryRun {
		for _, c := range contests {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Deadline.UTC().Format(time.RFC3339))
		}
		return nil
	}

	dist := settlement.NewDistributor(store, store, settlement.WithLogger(log))

	var (
		mu    sync.Mutex
		total settlement.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	if so.parallel > 0 {
		g.SetLimit(so.parallel)
	}
	for _, c := range contests {
		g.Go(func() error {
			rep, err := dist.DistributeContest(gctx, c)
			mu.Lock()
			total.Contests += rep.Contests
			total.Issued += rep.Issued
			total.Skipped += rep.Skipped
			total.Dropped += rep.Dropped
			total.Amount += rep.Amount
			mu.Unlock()
			if err != nil {
				return fmt.Errorf("contest %s: %w", c.ID, err)
			}
			log.Info(gctx, "contest settled",
				logger.String("contest_id", c.ID),
				logger.Int("issued", rep.Issued),
				logger.Int("skipped", rep.Skipped),
			)
			return nil
		})
	}
	err = g.Wait()

	fmt.Fprintf(cmd.OutOrStdout(), "contests=%d issued=%d skipped=%d dropped_tiers=%d amount=%.2f\n",
		total.Contests, total.Issued, total.Skipped, total.Dropped, total.Amount)
	return err
}

// selectContests returns the named contests, or all ended ones. Named
// contests that have not ended are refused.
func selectContests(ctx context.Context, store contestStore, ids []string, now time.Time) ([]model.Contest, error) {
	if len(ids) == 0 {
		return store.EndedContests(ctx, now)
	}
	out := make([]model.Contest, 0, len(ids))
	for _, id := range ids {
		c, err := store.Contest(ctx, id)
		if err != nil {
			return nil, err
		}
		if !c.Ended(now) {
			return nil, fmt.Errorf("contest %s ends at %s", id, c.Deadline.UTC().Format(time.RFC3339))
		}
		out = append(out, c)
	}
	return out, nil
}
