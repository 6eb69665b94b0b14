package policy

import (
	"time"

	"github.com/okian/rapport/internal/domain/model"
)

// Cumulative keeps an unweighted running mean of every score seen.
type Cumulative struct {
	cfg settings
}

// NewCumulative creates the running-average policy.
func NewCumulative(opts ...Option) *Cumulative {
	return &Cumulative{cfg: newSettings(opts)}
}

// Name implements UpdatePolicy.
func (p *Cumulative) Name() string { return NameCumulative }

// Apply implements UpdatePolicy.
func (p *Cumulative) Apply(prev model.Snapshot, rec model.ScoreRecord, now time.Time) (model.Snapshot, error) {
	return fold(p.cfg, prev, rec, now, func(old, score float64, count int) float64 {
		n := float64(count)
		return (old*n + score) / (n + 1)
	})
}
