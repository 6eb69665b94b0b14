package model_test

import (
	"errors"
	"math"
	"testing"

	model "github.com/okian/rapport/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRound1(t *testing.T) {
	convey.Convey("Given values to round to one decimal", t, func() {
		convey.Convey("Then halves round away from zero", func() {
			convey.So(model.Round1(75.75), convey.ShouldEqual, 75.8)
			convey.So(model.Round1(0.05), convey.ShouldEqual, 0.1)
			convey.So(model.Round1(-0.05), convey.ShouldEqual, -0.1)
		})

		convey.Convey("Then binary noise does not flip a half down", func() {
			// 76.85 has no exact float64 representation and sits just below the half.
			convey.So(model.Round1(76.85), convey.ShouldEqual, 76.9)
			convey.So(model.Round1(68.925), convey.ShouldEqual, 68.9)
		})

		convey.Convey("Then ordinary values round to the nearest tenth", func() {
			convey.So(model.Round1(58.333333), convey.ShouldEqual, 58.3)
			convey.So(model.Round1(64.666666), convey.ShouldEqual, 64.7)
			convey.So(model.Round1(70.9), convey.ShouldEqual, 70.9)
			convey.So(model.Round1(100), convey.ShouldEqual, 100.0)
		})

		convey.Convey("Then non-finite values pass through", func() {
			convey.So(math.IsNaN(model.Round1(math.NaN())), convey.ShouldBeTrue)
			convey.So(math.IsInf(model.Round1(math.Inf(1)), 1), convey.ShouldBeTrue)
		})
	})
}

func TestFields(t *testing.T) {
	convey.Convey("Given the rated fields", t, func() {
		fields := model.Fields()

		convey.Convey("Then there are six, overall first", func() {
			convey.So(len(fields), convey.ShouldEqual, 6)
			convey.So(fields[0], convey.ShouldEqual, model.FieldOverall)
		})

		convey.Convey("Then names round-trip through ParseField", func() {
			for _, f := range fields {
				parsed, err := model.ParseField(f.String())
				convey.So(err, convey.ShouldBeNil)
				convey.So(parsed, convey.ShouldEqual, f)
			}
		})

		convey.Convey("Then unknown names are rejected", func() {
			_, err := model.ParseField("empathy")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Then Get and Set address distinct fields", func() {
			var s model.Scores
			for i, f := range fields {
				s.Set(f, float64(i+1))
			}
			convey.So(s.Overall, convey.ShouldEqual, 1.0)
			convey.So(s.SubSkills.ClarityAndSpecificity, convey.ShouldEqual, 2.0)
			convey.So(s.SubSkills.MutualUnderstanding, convey.ShouldEqual, 3.0)
			convey.So(s.SubSkills.ProactiveProblemSolving, convey.ShouldEqual, 4.0)
			convey.So(s.SubSkills.AppropriateCustomization, convey.ShouldEqual, 5.0)
			convey.So(s.SubSkills.DocumentationAndVerification, convey.ShouldEqual, 6.0)
		})
	})
}

func TestScoreRecordValidate(t *testing.T) {
	convey.Convey("Given score records", t, func() {
		convey.Convey("When every field is within bounds", func() {
			rec := model.ScoreRecord{Scores: model.UniformScores(100)}
			rec.SubSkills.MutualUnderstanding = 0

			convey.Convey("Then validation passes", func() {
				convey.So(rec.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a sub-skill exceeds 100", func() {
			rec := model.ScoreRecord{Scores: model.UniformScores(50)}
			rec.SubSkills.DocumentationAndVerification = 100.5
			err := rec.Validate()

			convey.Convey("Then a ValidationError names the field", func() {
				var verr *model.ValidationError
				convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
				convey.So(verr.Field, convey.ShouldEqual, "documentation_and_verification")
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When overall is negative", func() {
			rec := model.ScoreRecord{Scores: model.UniformScores(50)}
			rec.Overall = -1

			convey.Convey("Then overall is reported first", func() {
				var verr *model.ValidationError
				convey.So(errors.As(rec.Validate(), &verr), convey.ShouldBeTrue)
				convey.So(verr.Field, convey.ShouldEqual, "overall")
			})
		})

		convey.Convey("When a field is NaN or infinite", func() {
			nan := model.ScoreRecord{Scores: model.UniformScores(50)}
			nan.SubSkills.ClarityAndSpecificity = math.NaN()
			inf := model.ScoreRecord{Scores: model.UniformScores(50)}
			inf.Overall = math.Inf(1)

			convey.Convey("Then both are rejected", func() {
				convey.So(nan.Validate(), convey.ShouldNotBeNil)
				convey.So(inf.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestScoreRecordClamp(t *testing.T) {
	convey.Convey("Given an out-of-range record", t, func() {
		rec := model.ScoreRecord{ConversationID: "c-1", Scores: model.UniformScores(50)}
		rec.Overall = 140
		rec.SubSkills.MutualUnderstanding = -3

		convey.Convey("When clamped", func() {
			out, err := rec.Clamp()

			convey.Convey("Then values are pulled into bounds", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Overall, convey.ShouldEqual, 100.0)
				convey.So(out.SubSkills.MutualUnderstanding, convey.ShouldEqual, 0.0)
				convey.So(out.SubSkills.ClarityAndSpecificity, convey.ShouldEqual, 50.0)
				convey.So(out.ConversationID, convey.ShouldEqual, "c-1")
			})

			convey.Convey("And the input is not modified", func() {
				convey.So(rec.Overall, convey.ShouldEqual, 140.0)
			})
		})

		convey.Convey("When a field is NaN", func() {
			rec.SubSkills.ProactiveProblemSolving = math.NaN()
			_, err := rec.Clamp()

			convey.Convey("Then clamping still fails", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
			})
		})
	})
}

func TestSnapshot(t *testing.T) {
	convey.Convey("Given a new snapshot", t, func() {
		s := model.NewSnapshot()

		convey.Convey("Then it is unrated and all zero", func() {
			convey.So(s.Rated(), convey.ShouldBeFalse)
			convey.So(s.Ratings.IsZero(), convey.ShouldBeTrue)
			convey.So(s.ConversationsCount, convey.ShouldEqual, 0)
			convey.So(s.Check(), convey.ShouldBeNil)
		})

		convey.Convey("When unrated but carrying ratings", func() {
			s.Ratings.Overall = 12

			convey.Convey("Then the invariant check fails", func() {
				convey.So(s.Check(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When rated with a real zero", func() {
			s.ConversationsCount = 1

			convey.Convey("Then the invariant check passes", func() {
				convey.So(s.Rated(), convey.ShouldBeTrue)
				convey.So(s.Check(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a rating is out of range", func() {
			s.ConversationsCount = 2
			s.Ratings.SubSkills.AppropriateCustomization = 101

			convey.Convey("Then the invariant check fails", func() {
				convey.So(s.Check(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When precise ratings are rounded", func() {
			s.ConversationsCount = 3
			s.Ratings = model.UniformScores(76.8125)

			convey.Convey("Then the view shows one decimal", func() {
				convey.So(s.Rounded().Overall, convey.ShouldEqual, 76.8)
				convey.So(s.Ratings.Overall, convey.ShouldEqual, 76.8125)
			})
		})
	})
}
