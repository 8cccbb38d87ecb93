package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

const uniqueViolation = "23505"

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, optionally applying migrations first
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.RunMigrations {
		if err := Migrate(cfg.URL); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// NewWithPool creates a storage over an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close closes the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

const userColumns = `id, username, email, password_hash, avg_wpm, best_wpm, races_count, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvgWPM, &u.BestWPM, &u.RacesCount, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.AvgWPM, user.BestWPM, user.RacesCount, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.ErrUsernameExists
		}
		return err
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Storage) RecordUserRace(ctx context.Context, id model.UserID, wpm float64) (*model.User, error) {
	var updated *model.User
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		user.RecordRace(wpm)

		_, err = tx.Exec(ctx,
			`UPDATE users SET avg_wpm = $2, best_wpm = $3, races_count = $4 WHERE id = $1`,
			user.ID, user.AvgWPM, user.BestWPM, user.RacesCount)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Passage operations

const passageColumns = `id, text, source, universe, length, created_at`

func scanPassage(row pgx.Row) (*model.Passage, error) {
	var p model.Passage
	if err := row.Scan(&p.ID, &p.Text, &p.Source, &p.Universe, &p.Length, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPassageNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Storage) SavePassage(ctx context.Context, passage *model.Passage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO passages (`+passageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, source = EXCLUDED.source,
		 universe = EXCLUDED.universe, length = EXCLUDED.length`,
		passage.ID, passage.Text, passage.Source, passage.Universe, passage.Length, passage.CreatedAt)
	return err
}

func (s *Storage) GetPassage(ctx context.Context, id model.PassageID) (*model.Passage, error) {
	return scanPassage(s.pool.QueryRow(ctx, `SELECT `+passageColumns+` FROM passages WHERE id = $1`, id))
}

func (s *Storage) ListPassages(ctx context.Context, offset, limit int) ([]*model.Passage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+passageColumns+` FROM passages ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	passages := []*model.Passage{}
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		passages = append(passages, p)
	}
	return passages, rows.Err()
}

func (s *Storage) CountPassages(ctx context.Context, universe string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM passages WHERE $1 = '' OR universe = $1`, universe).Scan(&n)
	return n, err
}

func (s *Storage) NthPassage(ctx context.Context, universe string, n int) (*model.Passage, error) {
	if n < 0 {
		return nil, model.ErrPassageNotFound
	}
	return scanPassage(s.pool.QueryRow(ctx,
		`SELECT `+passageColumns+` FROM passages WHERE $1 = '' OR universe = $1
		 ORDER BY created_at, id OFFSET $2 LIMIT 1`,
		universe, n))
}

// Race result operations

func (s *Storage) SaveRaceResult(ctx context.Context, result *model.RaceResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO race_results (id, user_id, passage_id, wpm, accuracy, chars_typed, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.ID, nullable(string(result.UserID)), nullable(string(result.PassageID)),
		result.WPM, result.Accuracy, result.CharsTyped, result.DurationMs, result.CreatedAt)
	return err
}

func (s *Storage) ListRaceResultsByUser(ctx context.Context, userID model.UserID) ([]*model.RaceResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, passage_id, wpm, accuracy, chars_typed, duration_ms, created_at
		 FROM race_results WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*model.RaceResult{}
	for rows.Next() {
		var (
			r         model.RaceResult
			user      *string
			passageID *string
		)
		if err := rows.Scan(&r.ID, &user, &passageID, &r.WPM, &r.Accuracy, &r.CharsTyped, &r.DurationMs, &r.CreatedAt); err != nil {
			return nil, err
		}
		if user != nil {
			r.UserID = model.UserID(*user)
		}
		if passageID != nil {
			r.PassageID = model.PassageID(*passageID)
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
