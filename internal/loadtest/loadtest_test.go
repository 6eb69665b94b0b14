package loadtest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/rapport/internal/adapters/http/api"
	"github.com/okian/rapport/internal/adapters/repository"
	service "github.com/okian/rapport/internal/app"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/internal/domain/rating"
	"github.com/okian/rapport/internal/domain/types"
	"github.com/okian/rapport/internal/loadtest"
	"github.com/okian/rapport/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newServer(p policy.UpdatePolicy) (*httptest.Server, *service.Service) {
	store := repository.NewSnapshotStore(repository.NewMemoryKV())
	svc := service.New(rating.New(store, p), service.WithWorkerCount(4))
	_ = svc.Start(context.Background())

	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	return httptest.NewServer(api.RequestIDMiddleware(mux)), svc
}

func TestGenerate(t *testing.T) {
	Convey("Given a request for 5 users with 4 conversations each", t, func() {
		plans := loadtest.Generate(5, 4)

		Convey("Then every record is valid and every ID is unique", func() {
			So(len(plans), ShouldEqual, 5)
			ids := map[string]bool{}
			users := map[string]bool{}
			for _, p := range plans {
				users[p.User] = true
				So(len(p.Records), ShouldEqual, 4)
				for _, rec := range p.Records {
					So(rec.Validate(), ShouldBeNil)
					ids[rec.ConversationID] = true
				}
			}
			So(len(users), ShouldEqual, 5)
			So(len(ids), ShouldEqual, 20)
		})
	})
}

func TestReplayAndCompare(t *testing.T) {
	Convey("Given two overall scores under the cumulative policy", t, func() {
		records := []model.ScoreRecord{
			{Scores: model.UniformScores(80)},
			{Scores: model.UniformScores(60)},
		}
		snap, err := loadtest.Replay(policy.NewCumulative(), records)
		So(err, ShouldBeNil)

		Convey("Then the replay holds the mean", func() {
			So(snap.ConversationsCount, ShouldEqual, 2)
			So(snap.Ratings.Overall, ShouldEqual, 70)
		})

		Convey("When a served view matches", func() {
			view := types.NewRatingView("alice", snap)

			Convey("Then there is no mismatch", func() {
				So(loadtest.Compare("alice", view, snap), ShouldBeEmpty)
			})
		})

		Convey("When a served view drifts", func() {
			view := types.NewRatingView("alice", snap)
			view.Ratings.Overall = 71
			view.ConversationsCount = 3

			Convey("Then the field and the counter are reported", func() {
				diff := loadtest.Compare("alice", view, snap)
				So(len(diff), ShouldEqual, 2)
				So(diff[0].Field, ShouldEqual, "overall")
				So(diff[0].Expected, ShouldEqual, 70)
				So(diff[1].Field, ShouldEqual, "conversations_count")
			})
		})
	})

	Convey("Given an out-of-range record", t, func() {
		_, err := loadtest.Replay(policy.NewCumulative(), []model.ScoreRecord{{Scores: model.UniformScores(120)}})

		Convey("Then the replay fails", func() {
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running server with the ewma policy", t, func() {
		p := policy.NewEWMA()
		srv, svc := newServer(p)
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		Convey("When a load run targets it", func() {
			stats, err := loadtest.Run(context.Background(), &loadtest.Config{
				BaseURL:       srv.URL,
				Users:         8,
				Conversations: 5,
				Workers:       4,
				Timeout:       5 * time.Second,
				Policy:        p,
			}, logger.Nop())

			Convey("Then every user matches its replay", func() {
				So(err, ShouldBeNil)
				So(stats.Passed(), ShouldBeTrue)
				So(stats.Applied, ShouldEqual, 40)
				So(stats.Duplicate, ShouldEqual, 8)
				So(stats.Submitted, ShouldEqual, 48)
				So(stats.UsersVerified, ShouldEqual, 8)
			})
		})

		Convey("When the run assumes a different policy", func() {
			stats, err := loadtest.Run(context.Background(), &loadtest.Config{
				BaseURL:       srv.URL,
				Users:         2,
				Conversations: 6,
				Workers:       2,
				Timeout:       5 * time.Second,
				Policy:        policy.NewCumulative(),
			}, logger.Nop())

			Convey("Then the difference is detected", func() {
				So(err, ShouldBeNil)
				So(stats.Passed(), ShouldBeFalse)
				So(stats.Mismatches, ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given an invalid configuration", t, func() {
		_, err := loadtest.Run(context.Background(), &loadtest.Config{BaseURL: "http://localhost"}, logger.Nop())

		Convey("Then the run is refused", func() {
			So(errors.Is(err, loadtest.ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given a server that is not healthy", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		Reset(srv.Close)

		_, err := loadtest.Run(context.Background(), &loadtest.Config{
			BaseURL: srv.URL, Users: 1, Conversations: 1, Workers: 1,
			Timeout: time.Second, Policy: policy.NewCumulative(),
		}, logger.Nop())

		Convey("Then the run stops before submitting", func() {
			So(errors.Is(err, loadtest.ErrUnhealthy), ShouldBeTrue)
		})
	})
}
