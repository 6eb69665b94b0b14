package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/spf13/cobra"
)

func newReplayCmd(root *rootOptions) *cobra.Command {
	var (
		pf     policyFlags
		preset string
	)
	cmd := &cobra.Command{
		Use:   "replay SCORE...",
		Short: "Fold a sequence of overall scores and print the trace.",
		Long: `Replay applies each score as one conversation whose sub-skills all equal
the overall, starting from an unrated user, and prints the rating after
every step. Nothing is stored.`,
		Example: `  ratingctl replay 80 60
  ratingctl replay --policy ewma --preset tier 75 78 80 45 75 78 80`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := pf.apply(cmd, cfg)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("preset") {
				cfg.TierPreset = preset
			}
			ps, err := cfg.Preset()
			if err != nil {
				return err
			}

			scores := make([]float64, len(args))
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("score %d: %w", i+1, err)
				}
				scores[i] = v
			}

			c := tier.New(ps)
			snap := model.NewSnapshot()
			rows := make([][]string, 0, len(scores))
			for i, v := range scores {
				next, err := p.Apply(snap, model.ScoreRecord{Scores: model.UniformScores(v)}, time.Now())
				label := "rejected"
				if err == nil {
					snap = next
					label = colorLabel(c.ClassifySnapshot(snap, model.FieldOverall))
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					strconv.FormatFloat(v, 'f', -1, 64),
					formatScore(model.Round1(snap.Ratings.Overall)),
					strconv.Itoa(snap.ConversationsCount),
					label,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "policy: %s, preset: %s\n", p.Name(), ps)
			return renderTable(cmd.OutOrStdout(), []string{"Step", "Score", "Rating", "Count", "Label"}, rows)
		},
	}
	pf.register(cmd)
	cmd.Flags().StringVar(&preset, "preset", "cumulative", "label vocabulary: cumulative or tier")
	return cmd
}
