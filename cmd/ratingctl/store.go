package main

import (
	"context"
	"fmt"

	"github.com/okian/rapport/internal/adapters/repository"
	"github.com/okian/rapport/internal/config"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/rating"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/okian/rapport/pkg/logger"
	"github.com/spf13/cobra"
)

// openEngine connects the configured store and builds an engine over it.
// The caller closes the returned store.
func openEngine(ctx context.Context, cfg *config.Config) (*rating.Engine, repository.Store, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, nil, err
	}
	p, err := cfg.UpdatePolicy()
	if err != nil {
		return nil, nil, err
	}
	kv, err := repository.Open(ctx, backend, cfg.StoreDSN)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get()
	store := repository.NewSnapshotStore(kv,
		repository.WithSharedKey(cfg.SharedKey),
		repository.WithBackendLabel(string(backend)),
		repository.WithLogger(log.Named("store")),
	)
	return rating.New(store, p, rating.WithLogger(log.Named("rating"))), store, nil
}

func newShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show USER",
		Short: "Print a user's stored rating with labels under every preset.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, store, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			snap, err := engine.Current(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cum, band := tier.New(tier.PresetCumulative), tier.New(tier.PresetTier)
			rows := make([][]string, 0, len(model.Fields()))
			for _, f := range model.Fields() {
				rows = append(rows, []string{
					f.String(),
					formatScore(model.Round1(snap.Ratings.Get(f))),
					colorLabel(cum.ClassifySnapshot(snap, f)),
					colorLabel(band.ClassifySnapshot(snap, f)),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "user: %s, conversations: %d\n", args[0], snap.ConversationsCount)
			if snap.Rated() {
				fmt.Fprintf(cmd.OutOrStdout(), "last updated: %s\n", snap.LastUpdated.Format("2006-01-02 15:04:05 MST"))
			}
			return renderTable(cmd.OutOrStdout(), []string{"Field", "Rating", "Cumulative", "Tier"}, rows)
		},
	}
}

func newResetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset USER",
		Short: "Clear a user's stored rating.",
		Long: `Reset clears the rating in the configured store. Run it while the server
is stopped, or use DELETE /users/{user}/rating against a running server
so the reset is ordered with in-flight updates.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			engine, store, err := openEngine(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := engine.Reset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rating of %s reset\n", args[0])
			return nil
		},
	}
}
