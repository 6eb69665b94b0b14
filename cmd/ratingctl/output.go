package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/okian/rapport/internal/domain/tier"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// Label colors by rank, highest band first.
var (
	topColor     = color.New(color.FgGreen, color.Bold)
	highColor    = color.New(color.FgGreen)
	middleColor  = color.New(color.FgYellow)
	lowColor     = color.New(color.FgRed)
	unratedColor = color.New(color.FgHiBlack)
)

// configureColor turns color off unless w is a terminal.
func configureColor(w io.Writer) {
	f, ok := w.(*os.File)
	color.NoColor = !ok || !term.IsTerminal(int(f.Fd()))
}

func colorLabel(l tier.Label) string {
	var c *color.Color
	switch {
	case l.Rank == tier.RankUnrated:
		c = unratedColor
	case l.Rank == tier.RankTop:
		c = topColor
	case l.Rank >= 4:
		c = highColor
	case l.Rank >= 2:
		c = middleColor
	default:
		c = lowColor
	}
	return c.Sprint(l.Name)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// renderTable writes rows under headers with numbers right-aligned.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
