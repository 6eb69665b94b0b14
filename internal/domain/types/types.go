// Package types contains the read shapes shared by the service, the HTTP
// API and the CLI.
package types

import (
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/tier"
)

// Submission is the outcome of submitting one score record.
type Submission struct {
	Snapshot model.Snapshot
	// Duplicate is set when the conversation was already applied; Snapshot
	// is then the current one.
	Duplicate bool
}

// FieldTiers maps a field name to its label.
type FieldTiers map[string]tier.Label

// RatingView is a snapshot as shown to users: ratings rounded to one
// decimal and labelled under every preset.
type RatingView struct {
	User               string                `json:"user"`
	Ratings            model.Scores          `json:"ratings"`
	ConversationsCount int                   `json:"conversations_count"`
	LastUpdated        *time.Time            `json:"last_updated,omitempty"`
	Rated              bool                  `json:"rated"`
	Tiers              map[string]FieldTiers `json:"tiers"`
	Duplicate          bool                  `json:"duplicate,omitempty"`
}

// NewRatingView builds the view of snap for user.
func NewRatingView(user string, snap model.Snapshot) RatingView {
	v := RatingView{
		User:               user,
		Ratings:            snap.Rounded(),
		ConversationsCount: snap.ConversationsCount,
		Rated:              snap.Rated(),
		Tiers:              make(map[string]FieldTiers, len(tier.Presets())),
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated.UTC()
		v.LastUpdated = &t
	}
	for _, p := range tier.Presets() {
		c := tier.New(p)
		labels := make(FieldTiers, len(model.Fields()))
		for _, f := range model.Fields() {
			labels[f.String()] = c.ClassifySnapshot(snap, f)
		}
		v.Tiers[p.String()] = labels
	}
	return v
}
