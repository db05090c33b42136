package loadtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fantasycricket/pkg/logger"
)

// Errors returned by Run.
var (
	ErrNoPlayers  = errors.New("no players to pick from")
	ErrViolations = errors.New("invariant violations found")
)

const (
	codeRosterFull = "roster_full"
	statusReplayed = "duplicate"
)

// Run executes the complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(stats.StartTime.UnixNano())
	}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.Bool("replay", cfg.Replay),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Load the catalogue
	players, err := client.Players(ctx)
	if err != nil {
		return stats, fmt.Errorf("list players: %w", err)
	}
	if len(players) == 0 {
		return stats, ErrNoPlayers
	}

	// Step 3: Register users concurrently
	users, err := registerUsers(ctx, cfg, client, stats)
	if err != nil {
		return stats, fmt.Errorf("register users: %w", err)
	}

	// Step 4: Fill every roster concurrently
	fillRosters(ctx, cfg, client, users, players, stats)
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Step 5: Verify budgets and the leaderboard
	teams, err := fetchTeams(ctx, cfg, client, users)
	if err != nil {
		return stats, fmt.Errorf("fetch teams: %w", err)
	}
	stats.Violations = append(stats.Violations, verifyTeams(teams)...)
	for _, t := range teams {
		if t.Complete {
			stats.CompleteTeams++
		}
	}

	board, err := client.Leaderboard(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	stats.Violations = append(stats.Violations, verifyLeaderboard(board, teams)...)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if len(stats.Violations) > 0 {
		for _, v := range stats.Violations {
			log.Error(ctx, "violation", logger.String("detail", v))
		}
		return stats, fmt.Errorf("%d found: %w", len(stats.Violations), ErrViolations)
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// forEach runs fn for 0..n-1 on workers goroutines.
func forEach(ctx context.Context, workers, n int, fn func(i int)) {
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}

	defer wg.Wait()
	defer close(jobs)
	for i := range n {
		select {
		case <-ctx.Done():
			return
		case jobs <- i:
		}
	}
}

func registerUsers(ctx context.Context, cfg *Config, client *Client, stats *Stats) ([]User, error) {
	users := make([]User, cfg.Users)
	var firstErr error
	var once sync.Once

	forEach(ctx, cfg.Workers, cfg.Users, func(i int) {
		u, err := client.Register(ctx, "load-user-"+strconv.Itoa(i))
		if err != nil {
			once.Do(func() { firstErr = err })
			return
		}
		users[i] = u
	})
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats.UsersRegistered = len(users)
	return users, nil
}

// fillRosters buys players in a per-user random order until the server
// reports the roster full or the catalogue runs out.
func fillRosters(ctx context.Context, cfg *Config, client *Client, users []User, players []Player, stats *Stats) {
	log := logger.Get().Named("loadtest")
	var applied, rejected, failed, replays, detected atomic.Int64

	forEach(ctx, cfg.Workers, len(users), func(i int) {
		u := users[i]
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		order := rng.Perm(len(players))

		for _, j := range order {
			if ctx.Err() != nil {
				return
			}
			key := uuid.NewString()
			res, err := client.AddPlayer(ctx, u.ID, players[j].ID, key)
			var apiErr *APIError
			switch {
			case err == nil:
				applied.Add(1)
			case errors.As(err, &apiErr) && apiErr.Code == codeRosterFull:
				return
			case errors.As(err, &apiErr) && apiErr.Status < 500:
				rejected.Add(1)
				continue
			default:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(ctx, "add failed", logger.String("user_id", u.ID), logger.Error(err))
				}
				continue
			}

			if !cfg.Replay {
				continue
			}
			replays.Add(1)
			again, err := client.AddPlayer(ctx, u.ID, players[j].ID, key)
			if err == nil && again.Status == statusReplayed && again.Budget == res.Budget && again.RosterSize == res.RosterSize {
				detected.Add(1)
			} else if cfg.Verbose {
				log.Warn(ctx, "replay not recognised", logger.String("user_id", u.ID), logger.String("key", key))
			}
		}
	})

	stats.AddsApplied = int(applied.Load())
	stats.AddsRejected = int(rejected.Load())
	stats.AddsFailed = int(failed.Load())
	stats.Replays = int(replays.Load())
	stats.ReplaysDetected = int(detected.Load())
	if stats.ReplaysDetected != stats.Replays {
		stats.Violations = append(stats.Violations,
			fmt.Sprintf("%d of %d replayed adds were applied twice or failed", stats.Replays-stats.ReplaysDetected, stats.Replays))
	}
}

func fetchTeams(ctx context.Context, cfg *Config, client *Client, users []User) ([]Team, error) {
	teams := make([]Team, len(users))
	var firstErr error
	var once sync.Once
	forEach(ctx, cfg.Workers, len(users), func(i int) {
		t, err := client.Team(ctx, users[i].ID)
		if err != nil {
			once.Do(func() { firstErr = err })
			return
		}
		teams[i] = t
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return teams, ctx.Err()
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var addsPerSecond float64
	if stats.Duration > 0 {
		addsPerSecond = float64(stats.AddsApplied+stats.AddsRejected+stats.AddsFailed) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("addsApplied", stats.AddsApplied),
		logger.Int("addsRejected", stats.AddsRejected),
		logger.Int("addsFailed", stats.AddsFailed),
		logger.Int("replays", stats.Replays),
		logger.Int("replaysDetected", stats.ReplaysDetected),
		logger.Int("completeTeams", stats.CompleteTeams),
		logger.Int("violations", len(stats.Violations)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("addsPerSecond", addsPerSecond),
	)
}
