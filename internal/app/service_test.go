package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/fantasycricket/internal/adapters/repository"
	service "github.com/okian/fantasycricket/internal/app"
	"github.com/okian/fantasycricket/internal/domain/ledger"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	"github.com/okian/fantasycricket/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr[T any](v T) *T { return &v }

func statsInput(runs, balls, innings, wickets int, overs float64, conceded int) *service.StatsInput {
	return &service.StatsInput{
		TotalRuns:     ptr(runs),
		BallsFaced:    ptr(balls),
		InningsPlayed: ptr(innings),
		Wickets:       ptr(wickets),
		OversBowled:   ptr(overs),
		RunsConceded:  ptr(conceded),
	}
}

func newService(store repository.Store, ledgerOpts ...ledger.Option) *service.Service {
	var n atomic.Int64
	valuer := valuation.New()
	l := ledger.New(store, valuer, append([]ledger.Option{ledger.WithLogger(logger.Nop())}, ledgerOpts...)...)
	return service.New(store, valuer, l,
		service.WithLogger(logger.Nop()),
		service.WithMaxLeaderboardLimit(10),
		service.WithImportWorkers(2),
		service.WithIDGenerator(func() string { return fmt.Sprintf("id-%03d", n.Add(1)) }),
	)
}

func TestPlayers(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty service", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(store)

		Convey("Creating a batsman derives and prices it", func() {
			v, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{
				Name: " Asha ", Affiliation: "North", Role: "batsman",
				Stats: statsInput(500, 400, 10, 0, 0, 0),
			})
			So(err, ShouldBeNil)
			So(v.ID, ShouldEqual, "id-001")
			So(v.Name, ShouldEqual, "Asha")
			So(v.Role, ShouldEqual, model.RoleBatsman)
			So(v.Seed, ShouldBeFalse)
			So(v.Score, ShouldEqual, 65)
			So(v.Derived.BattingStrikeRate, ShouldEqual, 125)
			So(v.Derived.BowlingStrikeRate, ShouldBeNil)
			So(v.Value, ShouldEqual, 700_000)
			So(v.Price.Value, ShouldEqual, 700_000)

			Convey("Updating its stats keeps the locked price", func() {
				u, err := svc.UpdatePlayer(ctx, v.ID, service.UpdatePlayerInput{
					Stats: &service.StatsPatch{TotalRuns: ptr(5000)},
				})
				So(err, ShouldBeNil)
				So(u.Stats.TotalRuns, ShouldEqual, 5000)
				So(u.Stats.BallsFaced, ShouldEqual, 400)
				So(u.Score, ShouldBeGreaterThan, 65)
				So(u.Price.Value, ShouldEqual, 700_000)
				So(u.Price.Source, ShouldEqual, valuation.SourceLocked)
			})

			Convey("Updating with a bad role is invalid input", func() {
				_, err := svc.UpdatePlayer(ctx, v.ID, service.UpdatePlayerInput{Role: ptr("Keeper")})
				So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("It can be deleted while on no roster", func() {
				So(svc.DeletePlayer(ctx, v.ID), ShouldBeNil)
				_, err := svc.GetPlayer(ctx, v.ID)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("It cannot be deleted while on a roster", func() {
				u, err := svc.Register(ctx, service.RegisterInput{Name: "Kim"})
				So(err, ShouldBeNil)
				_, err = svc.AddPlayer(ctx, u.ID, v.ID, "")
				So(err, ShouldBeNil)

				err = svc.DeletePlayer(ctx, v.ID)
				So(errors.Is(err, service.ErrPlayerInUse), ShouldBeTrue)
				So(model.CodeOf(err), ShouldEqual, "player_in_use")
			})
		})

		Convey("Creating without stats is invalid input", func() {
			_, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{Name: "X", Role: "Bowler"})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "stats is required")
		})

		Convey("Creating with a missing counter names the field", func() {
			in := statsInput(1, 1, 1, 0, 0, 0)
			in.Wickets = nil
			_, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{Name: "X", Role: "Bowler", Stats: in})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "stats.wickets is required")
		})

		Convey("Creating with negative runs is invalid input", func() {
			_, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{Name: "X", Role: "Bowler", Stats: statsInput(-1, 0, 0, 0, 0, 0)})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Creating with impossible overs is invalid input", func() {
			_, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{Name: "X", Role: "Bowler", Stats: statsInput(0, 0, 0, 1, 2.6, 10)})
			So(errors.Is(err, model.ErrInvalidStats), ShouldBeTrue)
		})

		Convey("Seed players are read-only", func() {
			So(store.CreatePlayer(ctx, model.Player{ID: "seed-1", Name: "Old", Role: model.RoleBowler, Seed: true, Value: 100_000}), ShouldBeNil)

			_, err := svc.UpdatePlayer(ctx, "seed-1", service.UpdatePlayerInput{Name: ptr("New")})
			So(errors.Is(err, service.ErrSeedImmutable), ShouldBeTrue)
			So(errors.Is(svc.DeletePlayer(ctx, "seed-1"), service.ErrSeedImmutable), ShouldBeTrue)
		})

		Convey("Unknown players are not found", func() {
			_, err := svc.UpdatePlayer(ctx, "nope", service.UpdatePlayerInput{})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			So(errors.Is(svc.DeletePlayer(ctx, "nope"), model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Listing filters by role", func() {
			for i, role := range []string{"Batsman", "Bowler", "All-Rounder", "Bowler"} {
				_, err := svc.CreatePlayer(ctx, service.CreatePlayerInput{
					Name: fmt.Sprintf("P%d", i), Role: role, Stats: statsInput(10, 10, 1, 1, 1, 6),
				})
				So(err, ShouldBeNil)
			}
			views, err := svc.ListPlayers(ctx, model.PlayerFilter{Role: model.RoleBowler})
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 2)
		})
	})
}

func TestTeams(t *testing.T) {
	ctx := context.Background()

	Convey("Given players and a registered user with a two-player roster", t, func() {
		store := repository.NewMemoryStore()
		svc := newService(store, ledger.WithRosterSize(2), ledger.WithStartingBudget(2_000_000))
		for _, id := range []string{"a", "b", "c"} {
			So(store.CreatePlayer(ctx, model.Player{
				ID: id, Name: strings.ToUpper(id), Role: model.RoleBatsman, Value: 700_000,
				Stats: model.RawStats{TotalRuns: 500, BallsFaced: 400, InningsPlayed: 10},
			}), ShouldBeNil)
		}
		u, err := svc.Register(ctx, service.RegisterInput{Name: "Kim"})
		So(err, ShouldBeNil)
		So(u.Budget, ShouldEqual, 2_000_000)

		Convey("Registration requires a name", func() {
			_, err := svc.Register(ctx, service.RegisterInput{})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("An add with an idempotency key applies once", func() {
			first, err := svc.AddPlayer(ctx, u.ID, "a", "key-1")
			So(err, ShouldBeNil)
			So(first.Status, ShouldEqual, service.StatusApplied)
			So(first.Budget, ShouldEqual, 1_300_000)
			So(first.Player.Value, ShouldEqual, 700_000)

			again, err := svc.AddPlayer(ctx, u.ID, "a", "key-1")
			So(err, ShouldBeNil)
			So(again.Status, ShouldEqual, service.StatusDuplicate)
			So(again.Budget, ShouldEqual, 1_300_000)
			So(again.RosterSize, ShouldEqual, 1)
			So(again.Player, ShouldResemble, first.Player)

			Convey("The same key for a remove is a separate request", func() {
				res, err := svc.RemovePlayer(ctx, u.ID, "a", "key-1")
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, service.StatusApplied)
				So(res.Budget, ShouldEqual, 2_000_000)
			})
		})

		Convey("A failed add releases its key", func() {
			_, err := svc.AddPlayer(ctx, u.ID, "missing", "key-2")
			So(errors.Is(err, ledger.ErrPlayerNotFound), ShouldBeTrue)

			_, err = svc.AddPlayer(ctx, u.ID, "missing", "key-2")
			So(errors.Is(err, ledger.ErrPlayerNotFound), ShouldBeTrue)
		})

		Convey("The team view gates the score on completeness", func() {
			_, err := svc.AddPlayer(ctx, u.ID, "a", "")
			So(err, ShouldBeNil)

			team, err := svc.Team(ctx, u.ID)
			So(err, ShouldBeNil)
			So(team.Complete, ShouldBeFalse)
			So(team.Score, ShouldBeNil)
			So(team.Members, ShouldHaveLength, 1)
			So(team.Members[0].Paid, ShouldEqual, 700_000)

			_, err = svc.AddPlayer(ctx, u.ID, "b", "")
			So(err, ShouldBeNil)
			team, err = svc.Team(ctx, u.ID)
			So(err, ShouldBeNil)
			So(team.Complete, ShouldBeTrue)
			So(*team.Score, ShouldEqual, 130)
			So(team.Budget+700_000*2, ShouldEqual, team.StartingBudget)

			Convey("A third add fails with roster full", func() {
				_, err := svc.AddPlayer(ctx, u.ID, "c", "")
				So(errors.Is(err, ledger.ErrRosterFull), ShouldBeTrue)
			})

			Convey("And the leaderboard ranks the complete team first", func() {
				other, err := svc.Register(ctx, service.RegisterInput{Name: "Lee"})
				So(err, ShouldBeNil)

				rows, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].UserID, ShouldEqual, u.ID)
				So(rows[0].Rank, ShouldEqual, 1)
				So(*rows[0].Score, ShouldEqual, 130)
				So(rows[1].UserID, ShouldEqual, other.ID)
				So(rows[1].Score, ShouldBeNil)
			})

			Convey("And analytics count it", func() {
				a, err := svc.Analytics(ctx)
				So(err, ShouldBeNil)
				So(a.Players, ShouldEqual, 3)
				So(a.PlayersByRole[model.RoleBatsman], ShouldEqual, 3)
				So(a.PlayersByRole[model.RoleBowler], ShouldEqual, 0)
				So(a.TotalValue, ShouldEqual, 2_100_000)
				So(a.AverageValue, ShouldEqual, 700_000)
				So(a.Users, ShouldEqual, 1)
				So(a.CompleteTeams, ShouldEqual, 1)
				So(a.TopPlayers, ShouldHaveLength, 3)
				So(a.TopPlayers[0].ID, ShouldEqual, "a")
			})
		})

		Convey("Unknown users are not found", func() {
			_, err := svc.Team(ctx, "nobody")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("A limit above the maximum is rejected", func() {
			_, err := svc.Leaderboard(ctx, 11)
			So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			_, err = svc.Leaderboard(ctx, -1)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestImport(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := newService(store)

		Convey("Imported players are seed players priced once", func() {
			rep, err := svc.Import(ctx, strings.NewReader("id,name,role,runs,balls_faced,innings,wickets,overs,runs_conceded\ns1,Zed,Batsman,500,400,10,0,0,0\n"))
			So(err, ShouldBeNil)
			So(rep.Imported, ShouldEqual, 1)

			v, err := svc.GetPlayer(ctx, "s1")
			So(err, ShouldBeNil)
			So(v.Seed, ShouldBeTrue)
			So(v.Value, ShouldEqual, 700_000)
			So(v.Price.Source, ShouldEqual, valuation.SourceLocked)
		})
	})
}

// hookStore runs hook once, right after the first player load that finds
// the player. Loads made from inside hook pass straight through.
type hookStore struct {
	*repository.MemoryStore
	hook  func()
	fired atomic.Bool
}

func (s *hookStore) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	p, err := s.MemoryStore.GetPlayer(ctx, id)
	if err == nil && s.hook != nil && s.fired.CompareAndSwap(false, true) {
		s.hook()
	}
	return p, err
}

// gateStore parks the first player load until release is closed.
type gateStore struct {
	*repository.MemoryStore
	entered chan struct{}
	release chan struct{}
	parked  atomic.Bool
}

func newGateStore() *gateStore {
	return &gateStore{
		MemoryStore: repository.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *gateStore) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	if s.parked.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.GetPlayer(ctx, id)
}

func TestDeleteRacingAdd(t *testing.T) {
	ctx := context.Background()

	Convey("Given a delete that lands while an add is between its read and its write", t, func() {
		store := &hookStore{MemoryStore: repository.NewMemoryStore()}
		svc := newService(store)
		So(store.CreatePlayer(ctx, model.Player{
			ID: "x", Name: "X", Role: model.RoleBowler, Value: 700_000,
			Stats: model.RawStats{TotalRuns: 500, BallsFaced: 400, InningsPlayed: 10},
		}), ShouldBeNil)
		u, err := svc.Register(ctx, service.RegisterInput{Name: "Kim"})
		So(err, ShouldBeNil)

		var deleteErr error
		store.hook = func() { deleteErr = svc.DeletePlayer(ctx, "x") }
		_, addErr := svc.AddPlayer(ctx, u.ID, "x", "")

		Convey("Then exactly one of them wins and no roster names a missing player", func() {
			So((deleteErr == nil) != (addErr == nil), ShouldBeTrue)

			team, err := svc.Team(ctx, u.ID)
			So(err, ShouldBeNil)
			for _, m := range team.Members {
				So(m.Missing, ShouldBeFalse)
			}
			if deleteErr == nil {
				So(errors.Is(addErr, ledger.ErrPlayerNotFound), ShouldBeTrue)
				So(team.Members, ShouldBeEmpty)
				So(team.Budget, ShouldEqual, team.StartingBudget)
			}
		})
	})
}

func TestConcurrentReplays(t *testing.T) {
	ctx := context.Background()

	addTwice := func(svc *service.Service, store *gateStore, userID string) (first, second service.MutationResult, firstErr, secondErr error) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			first, firstErr = svc.AddPlayer(ctx, userID, "p", "key-1")
		}()
		<-store.entered
		go func() {
			defer wg.Done()
			second, secondErr = svc.AddPlayer(ctx, userID, "p", "key-1")
		}()
		// Let the second request reach the in-flight one before it finishes.
		time.Sleep(20 * time.Millisecond)
		close(store.release)
		wg.Wait()
		return first, second, firstErr, secondErr
	}

	player := model.Player{
		ID: "p", Name: "P", Role: model.RoleBatsman, Value: 700_000,
		Stats: model.RawStats{TotalRuns: 500, BallsFaced: 400, InningsPlayed: 10},
	}

	Convey("Given an add that will fail for lack of budget", t, func() {
		store := newGateStore()
		svc := newService(store, ledger.WithStartingBudget(500_000))
		So(store.CreatePlayer(ctx, player), ShouldBeNil)
		u, err := svc.Register(ctx, service.RegisterInput{Name: "Kim"})
		So(err, ShouldBeNil)

		Convey("A replay sent while it runs reports the same failure", func() {
			_, second, firstErr, secondErr := addTwice(svc, store, u.ID)
			So(errors.Is(firstErr, ledger.ErrInsufficientBudget), ShouldBeTrue)
			So(errors.Is(secondErr, ledger.ErrInsufficientBudget), ShouldBeTrue)
			So(second.Status, ShouldNotEqual, service.StatusDuplicate)

			Convey("And the key is free for a later retry", func() {
				_, err := svc.AddPlayer(ctx, u.ID, "p", "key-1")
				So(errors.Is(err, ledger.ErrInsufficientBudget), ShouldBeTrue)
			})
		})
	})

	Convey("Given an add that will succeed", t, func() {
		store := newGateStore()
		svc := newService(store)
		So(store.CreatePlayer(ctx, player), ShouldBeNil)
		u, err := svc.Register(ctx, service.RegisterInput{Name: "Kim"})
		So(err, ShouldBeNil)

		Convey("A replay sent while it runs shares the original outcome", func() {
			first, second, firstErr, secondErr := addTwice(svc, store, u.ID)
			So(firstErr, ShouldBeNil)
			So(secondErr, ShouldBeNil)
			So(first.Status, ShouldEqual, service.StatusApplied)
			So(second.Status, ShouldEqual, service.StatusDuplicate)
			So(second.Budget, ShouldEqual, first.Budget)
			So(second.Player, ShouldResemble, first.Player)

			team, err := svc.Team(ctx, u.ID)
			So(err, ShouldBeNil)
			So(team.RosterSize, ShouldEqual, 1)
		})
	})
}
