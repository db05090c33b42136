package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/pkg/logger"
)

const maxRetryDelay = 1200 * time.Millisecond

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	affiliation    TEXT NOT NULL DEFAULT '',
	role           TEXT NOT NULL,
	total_runs     INTEGER NOT NULL DEFAULT 0,
	balls_faced    INTEGER NOT NULL DEFAULT 0,
	innings_played INTEGER NOT NULL DEFAULT 0,
	wickets        INTEGER NOT NULL DEFAULT 0,
	overs_bowled   DOUBLE PRECISION NOT NULL DEFAULT 0,
	runs_conceded  INTEGER NOT NULL DEFAULT 0,
	value          BIGINT NOT NULL DEFAULT 0,
	seed           BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	budget     BIGINT NOT NULL CHECK (budget >= 0),
	version    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS roster_entries (
	user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	player_id TEXT NOT NULL,
	value     BIGINT NOT NULL,
	added_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, player_id),
	CONSTRAINT roster_entries_player_fk FOREIGN KEY (player_id) REFERENCES players(id) ON DELETE RESTRICT
);
CREATE INDEX IF NOT EXISTS roster_entries_player_idx ON roster_entries (player_id);
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'roster_entries_player_fk') THEN
		ALTER TABLE roster_entries ADD CONSTRAINT roster_entries_player_fk
			FOREIGN KEY (player_id) REFERENCES players(id) ON DELETE RESTRICT NOT VALID;
	END IF;
END $$;
`

const playerColumns = `id, name, affiliation, role, total_runs, balls_faced, innings_played,
	wickets, overs_bowled, runs_conceded, value, seed, created_at, updated_at`

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool       *pgxpool.Pool
	log        logger.Logger
	txAttempts int
	retryDelay time.Duration
}

// Connect opens and pings a pool for databaseURL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// NewPostgresStore wraps pool. Call Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		pool:       pool,
		txAttempts: 8,
		retryDelay: 75 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("postgres")
	}
	return s
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Player{}, fmt.Errorf("%s: %w", id, ErrPlayerNotFound)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("get player %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPlayers(ctx context.Context, filter model.PlayerFilter) ([]model.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+playerColumns+`
		FROM players
		WHERE ($1::text = '' OR role = $1::text)
		  AND ($2::text = '' OR lower(affiliation) = lower($2::text))
		  AND ($3::text = '' OR strpos(lower(name), lower($3::text)) > 0)
		  AND (NOT $4::boolean OR seed)
		ORDER BY name, id
	`, string(filter.Role), filter.Affiliation, filter.NameContains, filter.SeedOnly)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreatePlayer(ctx context.Context, p model.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, playerArgs(p)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("player %s: %w", p.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("create player %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostgresStore) SavePlayer(ctx context.Context, p model.Player) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE players
		SET name = $2, affiliation = $3, role = $4, total_runs = $5, balls_faced = $6,
		    innings_played = $7, wickets = $8, overs_bowled = $9, runs_conceded = $10,
		    value = $11, seed = $12, created_at = $13, updated_at = $14
		WHERE id = $1
	`, playerArgs(p)...)
	if err != nil {
		return fmt.Errorf("save player %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", p.ID, ErrPlayerNotFound)
	}
	return nil
}

// DeletePlayer relies on roster_entries_player_fk: the delete and the
// reference check are one statement.
func (s *PostgresStore) DeletePlayer(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("player %s: %w", id, ErrPlayerInUse)
	}
	if err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrPlayerNotFound)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, budget, version, created_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Budget, &u.Version, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("%s: %w", id, ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}

	rosters, err := s.rosters(ctx, `WHERE user_id = $1`, id)
	if err != nil {
		return model.User{}, err
	}
	u.Roster = rosters[id]
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, budget, version, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Budget, &u.Version, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rosters, err := s.rosters(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Roster = rosters[out[i].ID]
	}
	return out, nil
}

func (s *PostgresStore) rosters(ctx context.Context, where string, args ...any) (map[string][]model.RosterEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, player_id, value, added_at FROM roster_entries `+where+`
		ORDER BY user_id, added_at, player_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.RosterEntry)
	for rows.Next() {
		var userID string
		var e model.RosterEntry
		if err := rows.Scan(&userID, &e.PlayerID, &e.Value, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("load rosters: %w", err)
		}
		out[userID] = append(out[userID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	return out, nil
}

// SaveUser writes the user row and replaces its roster in one serializable
// transaction. The version predicate on the UPDATE makes a stale write fail
// with ErrVersionConflict instead of overwriting a concurrent change.
func (s *PostgresStore) SaveUser(ctx context.Context, u model.User) (model.User, error) {
	stored := u.Clone()
	stored.Version = u.Version + 1

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if u.Version == 0 {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, budget, version, created_at) VALUES ($1, $2, $3, $4, $5)
			`, u.ID, u.Name, u.Budget, stored.Version, u.CreatedAt)
			if isUniqueViolation(err) {
				return fmt.Errorf("user %s: %w", u.ID, ErrAlreadyExists)
			}
			if err != nil {
				return err
			}
		} else {
			tag, err := tx.Exec(ctx, `
				UPDATE users SET name = $2, budget = $3, version = $4
				WHERE id = $1 AND version = $5
			`, u.ID, u.Name, u.Budget, stored.Version, u.Version)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				var exists bool
				if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, u.ID).Scan(&exists); err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("%s: %w", u.ID, ErrUserNotFound)
				}
				return fmt.Errorf("user %s at version %d: %w", u.ID, u.Version, ErrVersionConflict)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM roster_entries WHERE user_id = $1`, u.ID); err != nil {
				return err
			}
		}

		for _, e := range u.Roster {
			if _, err := tx.Exec(ctx, `
				INSERT INTO roster_entries (user_id, player_id, value, added_at) VALUES ($1, $2, $3, $4)
			`, u.ID, e.PlayerID, e.Value, e.AddedAt); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("roster of %s: %s: %w", u.ID, e.PlayerID, ErrPlayerNotFound)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.User{}, fmt.Errorf("save user: %w", err)
	}
	return stored, nil
}

// inTx runs fn in a serializable transaction, retrying serialization
// failures with exponential backoff.
func (s *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	retryDelay := s.retryDelay
	for attempt := 0; attempt < s.txAttempts; attempt++ {
		tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil || !isSerializationError(err) {
			return err
		}
		s.log.Debug(ctx, "serialization failure, retrying", logger.Int("attempt", attempt+1))
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < maxRetryDelay {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

// Close closes the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanPlayer(row pgx.Row) (model.Player, error) {
	var p model.Player
	var role string
	err := row.Scan(
		&p.ID, &p.Name, &p.Affiliation, &role,
		&p.Stats.TotalRuns, &p.Stats.BallsFaced, &p.Stats.InningsPlayed,
		&p.Stats.Wickets, &p.Stats.OversBowled, &p.Stats.RunsConceded,
		&p.Value, &p.Seed, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Role = model.Role(role)
	return p, err
}

func playerArgs(p model.Player) []any {
	return []any{
		p.ID, p.Name, p.Affiliation, string(p.Role),
		p.Stats.TotalRuns, p.Stats.BallsFaced, p.Stats.InningsPlayed,
		p.Stats.Wickets, p.Stats.OversBowled, p.Stats.RunsConceded,
		p.Value, p.Seed, p.CreatedAt, p.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
