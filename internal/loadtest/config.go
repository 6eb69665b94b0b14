// Package loadtest drives a running rating server with random score
// sequences and checks every user's rating against a local replay.
package loadtest

import (
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/policy"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL       string              // Base URL of the service
	Users         int                 // Number of distinct users
	Conversations int                 // Conversations submitted per user
	Workers       int                 // Users submitted concurrently
	Timeout       time.Duration       // HTTP request timeout
	Policy        policy.UpdatePolicy // Policy the server is configured with
	Verbose       bool                // Log every mismatch
}

// Plan is the sequence of records submitted for one user.
type Plan struct {
	User    string
	Records []model.ScoreRecord
}

// Mismatch describes a user whose served rating differs from the replay.
type Mismatch struct {
	User     string
	Field    string
	Served   float64
	Expected float64
}

// Stats holds run statistics.
type Stats struct {
	Users         int
	Submitted     int
	Applied       int
	Duplicate     int
	Failed        int
	UsersVerified int
	Mismatches    []Mismatch
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Passed reports whether every submission was applied and every user
// matched its replay.
func (s *Stats) Passed() bool {
	return s.Failed == 0 && len(s.Mismatches) == 0 && s.UsersVerified == s.Users
}
