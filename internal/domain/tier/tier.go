// Package tier buckets a rating into a human-readable skill level.
//
// One set of breakpoints serves two label vocabularies. The vocabularies
// stay separate presets: the practice screens and the progress screens
// name the same bands differently.
package tier

import (
	"fmt"
	"strings"

	"github.com/okian/rapport/internal/domain/model"
)

// Preset selects a label vocabulary.
type Preset int

const (
	// PresetCumulative labels bands Exceptional ... Needs Work.
	PresetCumulative Preset = iota
	// PresetTier labels bands Master ... Beginner.
	PresetTier
)

// Rank 0 is reserved for unrated; bands rank 1 (lowest) to 6 (highest).
const (
	RankUnrated = 0
	RankTop     = 6
)

// breakpoints are the inclusive lower bounds of ranks 6 down to 2.
// Anything rated below the last breakpoint is rank 1.
var breakpoints = [...]float64{90, 80, 70, 60, 50}

// labels are indexed by rank.
var labels = map[Preset][RankTop + 1]string{
	PresetCumulative: {"Not Rated", "Needs Work", "Basic", "Developing", "Proficient", "Advanced", "Exceptional"},
	PresetTier:       {"Not Rated", "Beginner", "Developing", "Intermediate", "Advanced", "Expert", "Master"},
}

func (p Preset) String() string {
	switch p {
	case PresetCumulative:
		return "cumulative"
	case PresetTier:
		return "tier"
	default:
		return fmt.Sprintf("preset(%d)", int(p))
	}
}

// Presets returns every preset in declaration order.
func Presets() []Preset {
	return []Preset{PresetCumulative, PresetTier}
}

// ParsePreset accepts "cumulative" or "tier" (case-insensitive).
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cumulative":
		return PresetCumulative, nil
	case "tier", "tiers":
		return PresetTier, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
}

// Label is a classified band.
type Label struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

// Rated reports whether the label is a real band.
func (l Label) Rated() bool { return l.Rank != RankUnrated }

// Classifier maps ratings to labels of one preset.
type Classifier struct {
	preset Preset
	names  [RankTop + 1]string
}

// New creates a classifier for preset. Unknown presets fall back to
// PresetCumulative.
func New(preset Preset) *Classifier {
	names, ok := labels[preset]
	if !ok {
		preset = PresetCumulative
		names = labels[preset]
	}
	return &Classifier{preset: preset, names: names}
}

// Preset returns the vocabulary in use.
func (c *Classifier) Preset() Preset { return c.preset }

// Classify labels a bare value. Zero is the unrated sentinel.
func (c *Classifier) Classify(value float64) Label {
	if value == 0 {
		return c.label(RankUnrated)
	}
	return c.band(value)
}

// ClassifySnapshot labels one field of a snapshot. The conversation counter
// decides unrated, so a real zero rating is the lowest band. The rounded
// value is used so the label agrees with the displayed number.
func (c *Classifier) ClassifySnapshot(s model.Snapshot, f model.Field) Label {
	if !s.Rated() {
		return c.label(RankUnrated)
	}
	return c.band(model.Round1(s.Ratings.Get(f)))
}

func (c *Classifier) band(value float64) Label {
	for i, lower := range breakpoints {
		if value >= lower {
			return c.label(RankTop - i)
		}
	}
	return c.label(1)
}

func (c *Classifier) label(rank int) Label {
	return Label{Name: c.names[rank], Rank: rank}
}
