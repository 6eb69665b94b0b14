package policy

import (
	"time"

	"github.com/okian/rapport/internal/domain/model"
)

// EWMA weights the newest score by alpha and the prior rating by 1-alpha,
// so one outlier moves a rating by at most alpha of the gap.
type EWMA struct {
	cfg settings
}

// NewEWMA creates the exponentially weighted policy.
func NewEWMA(opts ...Option) *EWMA {
	return &EWMA{cfg: newSettings(opts)}
}

// Name implements UpdatePolicy.
func (p *EWMA) Name() string { return NameEWMA }

// Alpha returns the configured weight of the newest score.
func (p *EWMA) Alpha() float64 { return p.cfg.alpha }

// Apply implements UpdatePolicy.
func (p *EWMA) Apply(prev model.Snapshot, rec model.ScoreRecord, now time.Time) (model.Snapshot, error) {
	alpha := p.cfg.alpha
	return fold(p.cfg, prev, rec, now, func(old, score float64, _ int) float64 {
		return alpha*score + (1-alpha)*old
	})
}
