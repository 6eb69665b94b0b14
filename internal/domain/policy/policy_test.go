package policy_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// replay folds overall-only sequences (sub-skills mirror overall) and
// returns the rounded overall after every step.
func replay(p policy.UpdatePolicy, scores ...float64) (model.Snapshot, []float64) {
	snap := model.NewSnapshot()
	trace := make([]float64, 0, len(scores))
	for i, s := range scores {
		next, err := p.Apply(snap, model.ScoreRecord{Scores: model.UniformScores(s)}, epoch.Add(time.Duration(i)*time.Minute))
		So(err, ShouldBeNil)
		snap = next
		trace = append(trace, snap.Rounded().Overall)
	}
	return snap, trace
}

func mixedRecord() model.ScoreRecord {
	return model.ScoreRecord{Scores: model.Scores{
		Overall: 72,
		SubSkills: model.SubSkills{
			ClarityAndSpecificity:        64,
			MutualUnderstanding:          81.5,
			ProactiveProblemSolving:      0,
			AppropriateCustomization:     100,
			DocumentationAndVerification: 49.9,
		},
	}}
}

func TestNew(t *testing.T) {
	Convey("Given policy names", t, func() {
		Convey("Then known names build their policy", func() {
			p, err := policy.New("cumulative")
			So(err, ShouldBeNil)
			So(p.Name(), ShouldEqual, policy.NameCumulative)

			p, err = policy.New("EWMA", policy.WithAlpha(0.5))
			So(err, ShouldBeNil)
			So(p.Name(), ShouldEqual, policy.NameEWMA)
			So(p.(*policy.EWMA).Alpha(), ShouldEqual, 0.5)
		})

		Convey("Then an empty name falls back to cumulative", func() {
			p, err := policy.New("")
			So(err, ShouldBeNil)
			So(p.Name(), ShouldEqual, policy.NameCumulative)
		})

		Convey("Then unknown names fail", func() {
			_, err := policy.New("elo")
			So(errors.Is(err, policy.ErrUnknownPolicy), ShouldBeTrue)
		})

		Convey("Then invalid alphas keep the default", func() {
			So(policy.NewEWMA(policy.WithAlpha(0)).Alpha(), ShouldEqual, policy.DefaultAlpha)
			So(policy.NewEWMA(policy.WithAlpha(1.5)).Alpha(), ShouldEqual, policy.DefaultAlpha)
		})
	})
}

func TestParseValidationMode(t *testing.T) {
	Convey("Given validation mode names", t, func() {
		m, err := policy.ParseValidationMode("CLAMP")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, policy.ValidationClamp)

		m, err = policy.ParseValidationMode("")
		So(err, ShouldBeNil)
		So(m, ShouldEqual, policy.ValidationReject)
		So(m.String(), ShouldEqual, "reject")

		_, err = policy.ParseValidationMode("ignore")
		So(err, ShouldNotBeNil)
	})
}

func TestFirstObservation(t *testing.T) {
	policies := []policy.UpdatePolicy{policy.NewCumulative(), policy.NewEWMA()}
	for _, p := range policies {
		Convey("Given a fresh snapshot under "+p.Name(), t, func() {
			rec := mixedRecord()
			next, err := p.Apply(model.NewSnapshot(), rec, epoch)

			Convey("Then every field takes the score outright", func() {
				So(err, ShouldBeNil)
				So(next.Ratings, ShouldResemble, rec.Scores)
				So(next.ConversationsCount, ShouldEqual, 1)
				So(next.LastUpdated.Equal(epoch), ShouldBeTrue)
			})
		})
	}
}

func TestCumulative(t *testing.T) {
	Convey("Given the cumulative policy", t, func() {
		p := policy.NewCumulative()

		Convey("When replaying 60, 80, 70, 90", func() {
			snap, trace := replay(p, 60, 80, 70, 90)

			Convey("Then the overall trace is the running mean", func() {
				So(trace, ShouldResemble, []float64{60, 70, 70, 75})
				So(snap.ConversationsCount, ShouldEqual, 4)
			})
		})

		Convey("When replaying ten scores", func() {
			scores := []float64{55, 62, 58, 68, 74, 71, 76, 82, 78, 85}
			_, trace := replay(p, scores...)

			Convey("Then every prefix equals the rounded mean of that prefix", func() {
				sum := 0.0
				for k, s := range scores {
					sum += s
					So(trace[k], ShouldEqual, model.Round1(sum/float64(k+1)))
				}
				So(trace[len(trace)-1], ShouldEqual, 70.9)
			})
		})

		Convey("When the same perturbation arrives later in the history", func() {
			var deltas []float64
			for k := 1; k <= 20; k++ {
				base := make([]float64, k)
				for i := range base {
					base[i] = 50
				}
				before, _ := replay(p, base...)
				after, err := p.Apply(before, model.ScoreRecord{Scores: model.UniformScores(100)}, epoch)
				So(err, ShouldBeNil)
				deltas = append(deltas, math.Abs(after.Ratings.Overall-before.Ratings.Overall))
			}

			Convey("Then its impact strictly decreases", func() {
				for i := 1; i < len(deltas); i++ {
					So(deltas[i], ShouldBeLessThan, deltas[i-1])
				}
				So(deltas[0], ShouldAlmostEqual, 25.0)
			})
		})

		Convey("When each step is rounded", func() {
			stepped := policy.NewCumulative(policy.WithStepRounding(true))
			snap, trace := replay(stepped, 55, 62, 58, 68, 74, 71, 76, 82, 78, 85)

			Convey("Then stored values carry one decimal and drift from the exact mean", func() {
				So(trace[2], ShouldEqual, 58.3)
				So(snap.Ratings.Overall, ShouldEqual, 71.0)
			})
		})
	})
}

func TestEWMA(t *testing.T) {
	Convey("Given the EWMA policy with alpha 0.25", t, func() {
		p := policy.NewEWMA()

		Convey("When replaying 75, 78, 80, 45, 75, 78, 80", func() {
			snap, trace := replay(p, 75, 78, 80, 45, 75, 78, 80)

			Convey("Then the trace follows 0.25*score + 0.75*rating", func() {
				So(trace, ShouldResemble, []float64{75, 75.8, 76.8, 68.9, 70.4, 72.3, 74.2})
				So(snap.ConversationsCount, ShouldEqual, 7)
			})
		})

		Convey("When the outlier arrives", func() {
			snap, _ := replay(p, 75, 78, 80)
			next, err := p.Apply(snap, model.ScoreRecord{Scores: model.UniformScores(45)}, epoch)

			Convey("Then the full-precision values match the unrounded formula", func() {
				So(err, ShouldBeNil)
				So(snap.Ratings.Overall, ShouldEqual, 76.8125)
				So(next.Ratings.Overall, ShouldEqual, 68.859375)
			})
		})

		Convey("When every step is rounded", func() {
			stepped := policy.NewEWMA(policy.WithStepRounding(true))
			_, trace := replay(stepped, 75, 78, 80, 45, 75, 78, 80)

			Convey("Then rounding compounds", func() {
				So(trace, ShouldResemble, []float64{75, 75.8, 76.9, 68.9, 70.4, 72.3, 74.2})
			})
		})

		Convey("When moving from any rated state", func() {
			olds := []float64{0, 12.5, 50, 76.8125, 99.9, 100}
			scores := []float64{0, 1, 45, 70, 100}

			Convey("Then one update moves at most a quarter of the gap", func() {
				for _, old := range olds {
					for _, s := range scores {
						prev := model.Snapshot{Ratings: model.UniformScores(old), ConversationsCount: 3}
						next, err := p.Apply(prev, model.ScoreRecord{Scores: model.UniformScores(s)}, epoch)
						So(err, ShouldBeNil)
						for _, f := range model.Fields() {
							moved := math.Abs(next.Ratings.Get(f) - old)
							So(moved, ShouldBeLessThanOrEqualTo, 0.25*math.Abs(s-old)+1e-9)
							So(moved, ShouldAlmostEqual, 0.25*math.Abs(s-old), 1e-9)
						}
					}
				}
			})
		})
	})
}

func TestRejectedUpdate(t *testing.T) {
	policies := []policy.UpdatePolicy{policy.NewCumulative(), policy.NewEWMA()}
	for _, p := range policies {
		Convey("Given a rated snapshot under "+p.Name(), t, func() {
			prev := model.Snapshot{
				Ratings:            mixedRecord().Scores,
				ConversationsCount: 4,
				LastUpdated:        epoch,
			}

			Convey("When a sub-skill is out of range", func() {
				rec := mixedRecord()
				rec.SubSkills.MutualUnderstanding = 101
				next, err := p.Apply(prev, rec, epoch.Add(time.Hour))

				Convey("Then the update is rejected and nothing changes", func() {
					So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
					So(next, ShouldResemble, prev)
				})
			})

			Convey("When overall is NaN", func() {
				rec := mixedRecord()
				rec.Overall = math.NaN()
				next, err := p.Apply(prev, rec, epoch.Add(time.Hour))

				Convey("Then the update is rejected and nothing changes", func() {
					So(err, ShouldNotBeNil)
					So(next, ShouldResemble, prev)
				})
			})
		})
	}
}

func TestClampMode(t *testing.T) {
	Convey("Given the cumulative policy in clamp mode", t, func() {
		p := policy.NewCumulative(policy.WithValidation(policy.ValidationClamp))

		Convey("When scores exceed the range", func() {
			rec := model.ScoreRecord{Scores: model.UniformScores(150)}
			rec.SubSkills.MutualUnderstanding = -20
			next, err := p.Apply(model.NewSnapshot(), rec, epoch)

			Convey("Then they are clamped instead of rejected", func() {
				So(err, ShouldBeNil)
				So(next.Ratings.Overall, ShouldEqual, 100.0)
				So(next.Ratings.SubSkills.MutualUnderstanding, ShouldEqual, 0.0)
				So(next.ConversationsCount, ShouldEqual, 1)
			})
		})

		Convey("When a score is NaN", func() {
			rec := model.ScoreRecord{Scores: model.UniformScores(math.NaN())}
			next, err := p.Apply(model.NewSnapshot(), rec, epoch)

			Convey("Then it is still rejected", func() {
				So(err, ShouldNotBeNil)
				So(next.ConversationsCount, ShouldEqual, 0)
			})
		})
	})
}
