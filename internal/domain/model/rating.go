// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Score bounds shared by every rated field.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// roundingSnap removes binary representation noise before rounding to one
// decimal, so 76.85 stored as 76.8499999... still rounds half away from zero.
const roundingSnap = 1e6

// Field identifies one of the six rated values of a conversation.
type Field int

const (
	FieldOverall Field = iota
	FieldClarityAndSpecificity
	FieldMutualUnderstanding
	FieldProactiveProblemSolving
	FieldAppropriateCustomization
	FieldDocumentationAndVerification
	fieldCount
)

var fieldNames = [fieldCount]string{
	"overall",
	"clarity_and_specificity",
	"mutual_understanding",
	"proactive_problem_solving",
	"appropriate_customization",
	"documentation_and_verification",
}

// Fields returns every rated field, overall first.
func Fields() []Field {
	out := make([]Field, 0, fieldCount)
	for f := FieldOverall; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField maps a snake_case field name to its Field.
func ParseField(s string) (Field, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for f := FieldOverall; f < fieldCount; f++ {
		if fieldNames[f] == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// SubSkills holds the five named rubric values.
type SubSkills struct {
	ClarityAndSpecificity        float64 `json:"clarity_and_specificity" bson:"clarity_and_specificity"`
	MutualUnderstanding          float64 `json:"mutual_understanding" bson:"mutual_understanding"`
	ProactiveProblemSolving      float64 `json:"proactive_problem_solving" bson:"proactive_problem_solving"`
	AppropriateCustomization     float64 `json:"appropriate_customization" bson:"appropriate_customization"`
	DocumentationAndVerification float64 `json:"documentation_and_verification" bson:"documentation_and_verification"`
}

// Scores is the overall value plus the five sub-skills. It is the shape of
// both a conversation's results and a user's accumulated ratings.
type Scores struct {
	Overall   float64   `json:"overall" bson:"overall"`
	SubSkills SubSkills `json:"sub_skills" bson:"sub_skills"`
}

// Get returns the value of f.
func (s Scores) Get(f Field) float64 {
	switch f {
	case FieldOverall:
		return s.Overall
	case FieldClarityAndSpecificity:
		return s.SubSkills.ClarityAndSpecificity
	case FieldMutualUnderstanding:
		return s.SubSkills.MutualUnderstanding
	case FieldProactiveProblemSolving:
		return s.SubSkills.ProactiveProblemSolving
	case FieldAppropriateCustomization:
		return s.SubSkills.AppropriateCustomization
	case FieldDocumentationAndVerification:
		return s.SubSkills.DocumentationAndVerification
	default:
		return 0
	}
}

// Set assigns v to f.
func (s *Scores) Set(f Field, v float64) {
	switch f {
	case FieldOverall:
		s.Overall = v
	case FieldClarityAndSpecificity:
		s.SubSkills.ClarityAndSpecificity = v
	case FieldMutualUnderstanding:
		s.SubSkills.MutualUnderstanding = v
	case FieldProactiveProblemSolving:
		s.SubSkills.ProactiveProblemSolving = v
	case FieldAppropriateCustomization:
		s.SubSkills.AppropriateCustomization = v
	case FieldDocumentationAndVerification:
		s.SubSkills.DocumentationAndVerification = v
	}
}

// IsZero reports whether all six values are zero.
func (s Scores) IsZero() bool {
	for _, f := range Fields() {
		if s.Get(f) != 0 {
			return false
		}
	}
	return true
}

// Rounded returns a copy with every value passed through Round1.
func (s Scores) Rounded() Scores {
	var out Scores
	for _, f := range Fields() {
		out.Set(f, Round1(s.Get(f)))
	}
	return out
}

// UniformScores returns Scores with every field set to v.
func UniformScores(v float64) Scores {
	var out Scores
	for _, f := range Fields() {
		out.Set(f, v)
	}
	return out
}

// ScoreRecord is one completed conversation's rubric results.
type ScoreRecord struct {
	// ConversationID is an optional idempotency key.
	ConversationID string `json:"conversation_id,omitempty"`
	Scores
}

// Validate checks that every field is finite and within [MinScore, MaxScore].
// The first offending field is reported.
func (r ScoreRecord) Validate() error {
	for _, f := range Fields() {
		v := r.Get(f)
		switch {
		case math.IsNaN(v):
			return &ValidationError{Field: f.String(), Value: v, Reason: "not a number"}
		case math.IsInf(v, 0):
			return &ValidationError{Field: f.String(), Value: v, Reason: "not finite"}
		case v < MinScore || v > MaxScore:
			return &ValidationError{Field: f.String(), Value: v, Reason: "out of range [0, 100]"}
		}
	}
	return nil
}

// Clamp returns a copy with finite values pulled into [MinScore, MaxScore].
// NaN has no clamp target and is still rejected.
func (r ScoreRecord) Clamp() (ScoreRecord, error) {
	out := r
	for _, f := range Fields() {
		v := r.Get(f)
		if math.IsNaN(v) {
			return r, &ValidationError{Field: f.String(), Value: v, Reason: "not a number"}
		}
		out.Set(f, math.Max(MinScore, math.Min(MaxScore, v)))
	}
	return out, nil
}

// Snapshot is a user's persisted rating state. Ratings are kept at full
// precision; Rounded is the one-decimal view shown to users.
type Snapshot struct {
	Ratings            Scores    `json:"ratings"`
	ConversationsCount int       `json:"conversations_count"`
	LastUpdated        time.Time `json:"last_updated"`
}

// NewSnapshot returns the unrated default snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{}
}

// Rated reports whether at least one conversation has been recorded.
func (s Snapshot) Rated() bool {
	return s.ConversationsCount > 0
}

// Rounded returns the one-decimal view of the ratings.
func (s Snapshot) Rounded() Scores {
	return s.Ratings.Rounded()
}

// Check verifies the snapshot invariants: a non-negative counter, finite
// in-range ratings, and all-zero ratings while unrated.
func (s Snapshot) Check() error {
	if s.ConversationsCount < 0 {
		return fmt.Errorf("negative conversations count %d", s.ConversationsCount)
	}
	if !s.Rated() && !s.Ratings.IsZero() {
		return fmt.Errorf("unrated snapshot carries non-zero ratings")
	}
	for _, f := range Fields() {
		v := s.Ratings.Get(f)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < MinScore || v > MaxScore {
			return fmt.Errorf("rating %s out of range: %v", f, v)
		}
	}
	return nil
}

// Round1 rounds x to one decimal place, half away from zero.
func Round1(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scaled := math.Round(x*10*roundingSnap) / roundingSnap
	return math.Round(scaled) / 10
}
