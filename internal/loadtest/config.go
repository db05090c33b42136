// Package loadtest drives a running game over HTTP: it registers users,
// fills their rosters concurrently and checks the budgets and leaderboard
// that come back.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the service
	Users   int           // Number of users to register
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	Replay  bool          // Resend every add with the same Idempotency-Key
	Seed    uint64        // Shuffle seed; 0 picks one from the clock
	Verbose bool          // Log every failed request
}

// Player is the part of a player view the run needs.
type Player struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Price struct {
		Value int64 `json:"value"`
	} `json:"price"`
}

// User is a registered user.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Budget int64  `json:"budget"`
}

// Mutation is the answer to a roster change.
type Mutation struct {
	Status     string `json:"status"`
	UserID     string `json:"user_id"`
	Budget     int64  `json:"budget"`
	RosterSize int    `json:"roster_size"`
}

// Member is one roster entry of a team.
type Member struct {
	PlayerID string  `json:"player_id"`
	Paid     int64   `json:"paid"`
	Score    float64 `json:"score"`
}

// Team is a user's roster as the service reports it.
type Team struct {
	UserID         string   `json:"user_id"`
	Budget         int64    `json:"budget"`
	StartingBudget int64    `json:"starting_budget"`
	RosterSize     int      `json:"roster_size"`
	RosterCap      int      `json:"roster_cap"`
	Complete       bool     `json:"complete"`
	Score          *float64 `json:"score"`
	Members        []Member `json:"members"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank     int      `json:"rank"`
	UserID   string   `json:"user_id"`
	Complete bool     `json:"complete"`
	Score    *float64 `json:"score"`
}

// Stats holds run statistics.
type Stats struct {
	UsersRegistered int           `json:"users_registered"`
	AddsApplied     int           `json:"adds_applied"`
	AddsRejected    int           `json:"adds_rejected"`
	AddsFailed      int           `json:"adds_failed"`
	Replays         int           `json:"replays"`
	ReplaysDetected int           `json:"replays_detected"`
	CompleteTeams   int           `json:"complete_teams"`
	Violations      []string      `json:"violations,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration_ns"`
}
