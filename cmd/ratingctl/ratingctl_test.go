package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rapport/internal/adapters/http/api"
	"github.com/okian/rapport/internal/adapters/repository"
	service "github.com/okian/rapport/internal/app"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// execute runs ratingctl with args and returns what it wrote to stdout.
func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// sqliteConfig writes a config file pointing at a fresh sqlite store.
func sqliteConfig(t *testing.T) (configPath, dsn string) {
	dir := t.TempDir()
	dsn = filepath.Join(dir, "ratings.db")
	configPath = filepath.Join(dir, "rapport.yaml")
	body := "store_backend: sqlite\nstore_dsn: " + dsn + "\nlog_level: error\n"
	if err := os.WriteFile(configPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return configPath, dsn
}

func TestClassifyCommand(t *testing.T) {
	Convey("Given the classify command", t, func() {
		Convey("When classifying 85", func() {
			out, err := execute("classify", "85")

			Convey("Then both presets are shown", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Advanced")
				So(out, ShouldContainSubstring, "Expert")
			})
		})

		Convey("When classifying zero", func() {
			out, err := execute("classify", "0")

			Convey("Then it is unrated", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "Not Rated")
			})
		})

		Convey("When the value is out of range", func() {
			_, err := execute("classify", "150")

			Convey("Then it is refused", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestReplayCommand(t *testing.T) {
	Convey("Given the replay command", t, func() {
		Convey("When replaying two scores with the cumulative policy", func() {
			out, err := execute("replay", "80", "60")

			Convey("Then the mean and its label are printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "policy: cumulative")
				So(out, ShouldContainSubstring, "70.0")
				So(out, ShouldContainSubstring, "Proficient")
			})
		})

		Convey("When replaying with the ewma policy and the tier preset", func() {
			out, err := execute("replay", "--policy", "ewma", "--preset", "tier", "75", "78", "80", "45", "75", "78", "80")

			Convey("Then every step of the trace is printed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "policy: ewma, preset: tier")
				So(out, ShouldContainSubstring, "75.8")
				So(out, ShouldContainSubstring, "68.9")
				So(out, ShouldContainSubstring, "74.2")
				So(out, ShouldContainSubstring, "Intermediate")
			})
		})

		Convey("When a score is out of range", func() {
			out, err := execute("replay", "80", "130")

			Convey("Then that step is rejected and the rating kept", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "rejected")
			})
		})

		Convey("When a score is out of range under clamping", func() {
			out, err := execute("replay", "--validation", "clamp", "130")

			Convey("Then it is applied as the maximum", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "100.0")
				So(out, ShouldContainSubstring, "Exceptional")
			})
		})

		Convey("When the policy is unknown", func() {
			_, err := execute("replay", "--policy", "median", "80")

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When a score is not a number", func() {
			_, err := execute("replay", "eighty")

			Convey("Then it fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestStoreCommands(t *testing.T) {
	Convey("Given a sqlite store", t, func() {
		configPath, dsn := sqliteConfig(t)

		Convey("When migrating twice", func() {
			first, err1 := execute("--config", configPath, "migrate")
			second, err2 := execute("--config", configPath, "migrate")

			Convey("Then only the first run changes the schema", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldContainSubstring, "migrated from version 0 to 1")
				So(second, ShouldContainSubstring, "already at version 1")
			})
		})

		Convey("When a user has a stored rating", func() {
			ctx := context.Background()
			kv, err := repository.Open(ctx, repository.BackendSQLite, dsn)
			So(err, ShouldBeNil)
			store := repository.NewSnapshotStore(kv)
			_, err = rating.New(store, policy.NewCumulative()).Update(ctx, "alice", model.ScoreRecord{Scores: model.UniformScores(80)})
			So(err, ShouldBeNil)
			So(store.Close(), ShouldBeNil)

			out, err := execute("--config", configPath, "show", "alice")

			Convey("Then show prints it", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "conversations: 1")
				So(out, ShouldContainSubstring, "80.0")
				So(out, ShouldContainSubstring, "Advanced")
			})

			Convey("And after a reset it is unrated", func() {
				out, err := execute("--config", configPath, "reset", "alice")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "rating of alice reset")

				out, err = execute("--config", configPath, "show", "alice")
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "conversations: 0")
				So(out, ShouldContainSubstring, "Not Rated")
			})
		})

		Convey("When migrating the memory backend", func() {
			_, err := execute("migrate")

			Convey("Then it is refused", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoadCommand(t *testing.T) {
	Convey("Given a running server", t, func() {
		store := repository.NewSnapshotStore(repository.NewMemoryKV())
		svc := service.New(rating.New(store, policy.NewCumulative()), service.WithWorkerCount(2))
		So(svc.Start(context.Background()), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		Convey("When a small load run targets it", func() {
			out, err := execute("load", "--url", srv.URL, "--users", "4", "--conversations", "3", "--workers", "2")

			Convey("Then it passes and prints a summary", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "mismatches")
				So(out, ShouldContainSubstring, "submitted")
			})
		})

		Convey("When the run assumes the wrong policy", func() {
			_, err := execute("load", "--url", srv.URL, "--users", "2", "--conversations", "6", "--workers", "2", "--policy", "ewma")

			Convey("Then it reports a failure", func() {
				So(err, ShouldEqual, errLoadFailed)
			})
		})
	})
}
