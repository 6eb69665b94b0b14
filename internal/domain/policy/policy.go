// Package policy defines how a completed conversation's scores fold into a
// user's rating snapshot.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/rapport/internal/domain/model"
)

// Policy names accepted by New.
const (
	NameCumulative = "cumulative"
	NameEWMA       = "ewma"
)

// DefaultAlpha is the weight of the newest score under EWMA.
const DefaultAlpha = 0.25

// UpdatePolicy combines the previous snapshot with a new score record.
// Implementations are pure: persistence is the caller's job.
type UpdatePolicy interface {
	// Name identifies the policy in config and logs.
	Name() string
	// Apply returns the next snapshot. On error prev is returned unchanged.
	Apply(prev model.Snapshot, rec model.ScoreRecord, now time.Time) (model.Snapshot, error)
}

// ValidationMode decides what happens to out-of-range scores.
type ValidationMode int

const (
	// ValidationReject fails the update with a *model.ValidationError.
	ValidationReject ValidationMode = iota
	// ValidationClamp pulls finite values into [0, 100] silently.
	ValidationClamp
)

func (m ValidationMode) String() string {
	switch m {
	case ValidationReject:
		return "reject"
	case ValidationClamp:
		return "clamp"
	default:
		return fmt.Sprintf("validation(%d)", int(m))
	}
}

// ParseValidationMode accepts "reject" or "clamp" (case-insensitive).
func ParseValidationMode(s string) (ValidationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return ValidationReject, nil
	case "clamp":
		return ValidationClamp, nil
	default:
		return 0, fmt.Errorf("unknown validation mode %q", s)
	}
}

type settings struct {
	validation    ValidationMode
	roundEachStep bool
	alpha         float64
}

func newSettings(opts []Option) settings {
	s := settings{
		validation: ValidationReject,
		alpha:      DefaultAlpha,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// New builds the policy registered under name.
func New(name string, opts ...Option) (UpdatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameCumulative:
		return NewCumulative(opts...), nil
	case NameEWMA:
		return NewEWMA(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// stepFunc computes the next value of one field for a rated snapshot.
type stepFunc func(old, score float64, count int) float64

// fold applies step to every field. The first observation becomes the
// rating outright and the shared counter advances by one.
func fold(cfg settings, prev model.Snapshot, rec model.ScoreRecord, now time.Time, step stepFunc) (model.Snapshot, error) {
	in, err := admit(cfg.validation, rec)
	if err != nil {
		return prev, err
	}

	next := prev
	for _, f := range model.Fields() {
		score := in.Get(f)
		v := score
		if prev.Rated() {
			v = step(prev.Ratings.Get(f), score, prev.ConversationsCount)
		}
		if cfg.roundEachStep {
			v = model.Round1(v)
		}
		next.Ratings.Set(f, v)
	}
	next.ConversationsCount = prev.ConversationsCount + 1
	next.LastUpdated = now
	return next, nil
}

func admit(mode ValidationMode, rec model.ScoreRecord) (model.ScoreRecord, error) {
	if mode == ValidationClamp {
		return rec.Clamp()
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}
