package main

import (
	"errors"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/rapport/internal/loadtest"
	"github.com/okian/rapport/pkg/logger"
	"github.com/spf13/cobra"
)

var errLoadFailed = errors.New("load test found problems")

func newLoadCmd(root *rootOptions) *cobra.Command {
	var (
		pf  policyFlags
		cfg = loadtest.Config{
			BaseURL:       "http://localhost:9080",
			Users:         100,
			Conversations: 20,
			Workers:       runtime.NumCPU() * 2,
			Timeout:       30 * time.Second,
		}
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load-test a running server and verify every rating.",
		Long: `Load submits random score sequences for many users concurrently, resends
one conversation per user to check deduplication, then compares each
served rating with a local replay under the same policy.`,
		Example: `  ratingctl load --users 1000 --conversations 50
  ratingctl load --url http://localhost:8080 --policy ewma --alpha 0.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := pf.apply(cmd, conf)
			if err != nil {
				return err
			}
			cfg.Policy = p

			stats, err := loadtest.Run(cmd.Context(), &cfg, logger.Named("load"))
			if stats != nil {
				rows := [][]string{
					{"users", strconv.Itoa(stats.Users)},
					{"submitted", strconv.Itoa(stats.Submitted)},
					{"applied", strconv.Itoa(stats.Applied)},
					{"duplicate", strconv.Itoa(stats.Duplicate)},
					{"failed", strconv.Itoa(stats.Failed)},
					{"verified", strconv.Itoa(stats.UsersVerified)},
					{"mismatches", strconv.Itoa(len(stats.Mismatches))},
					{"duration", stats.Duration.Round(time.Millisecond).String()},
				}
				if rerr := renderTable(cmd.OutOrStdout(), []string{"Metric", "Value"}, rows); rerr != nil {
					return rerr
				}
			}
			if err != nil {
				return err
			}
			if !stats.Passed() {
				return errLoadFailed
			}
			return nil
		},
	}
	pf.register(cmd)
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.IntVar(&cfg.Users, "users", cfg.Users, "number of users")
	f.IntVar(&cfg.Conversations, "conversations", cfg.Conversations, "conversations per user")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "users submitted concurrently")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every mismatch")
	return cmd
}
