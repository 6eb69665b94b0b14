package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify VALUE",
		Short: "Show the label of a value under every preset.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			if math.IsNaN(v) || v < model.MinScore || v > model.MaxScore {
				return fmt.Errorf("value must be within [%v, %v], got %v", model.MinScore, model.MaxScore, v)
			}

			rows := make([][]string, 0, len(tier.Presets()))
			for _, p := range tier.Presets() {
				l := tier.New(p).Classify(v)
				rows = append(rows, []string{p.String(), strconv.Itoa(l.Rank), colorLabel(l)})
			}
			return renderTable(cmd.OutOrStdout(), []string{"Preset", "Rank", "Label"}, rows)
		},
	}
}
