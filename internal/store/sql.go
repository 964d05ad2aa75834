package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"santatrack/internal/model"
	"santatrack/internal/obs"
)

// SQL stores achievements in Postgres (pgx) or SQLite (modernc).
type SQL struct {
	db     *sql.DB
	driver string
}

// OpenPostgres connects using the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return initSQL(ctx, db, "pgx")
}

// OpenSQLite opens a local database file. ":memory:" gives a private
// in-memory database, useful in tests.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("open sqlite: %w: path is required", ErrInvalid)
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)
	return initSQL(ctx, db, "sqlite")
}

func initSQL(ctx context.Context, db *sql.DB, driver string) (*SQL, error) {
	s := &SQL{db: db, driver: driver}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS achievements (
	tracker_id TEXT NOT NULL,
	achievement_id TEXT NOT NULL,
	unlocked_at BIGINT NOT NULL,
	PRIMARY KEY (tracker_id, achievement_id)
)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", s.driver, err)
	}
	return nil
}

// arg returns the n-th (1-based) placeholder for the active dialect.
func (s *SQL) arg(n int) string {
	if s.driver == "pgx" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQL) ListAchievements(ctx context.Context, trackerID string) (out []model.UnlockedAchievement, err error) {
	defer obs.Time(ctx, "store.ListAchievements")(&err)
	q := `SELECT achievement_id, unlocked_at FROM achievements WHERE tracker_id = ` + s.arg(1) + ` ORDER BY unlocked_at, achievement_id`
	rows, err := s.db.QueryContext(ctx, q, trackerID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()
	out = []model.UnlockedAchievement{}
	for rows.Next() {
		var id string
		var ms int64
		if err := rows.Scan(&id, &ms); err != nil {
			return nil, fmt.Errorf("list achievements: scan: %w", err)
		}
		out = append(out, model.UnlockedAchievement{ID: id, UnlockedAt: fromMillis(ms)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return out, nil
}

func (s *SQL) UnlockAchievement(ctx context.Context, trackerID string, a model.UnlockedAchievement) (created bool, err error) {
	defer obs.Time(ctx, "store.UnlockAchievement")(&err)
	if trackerID == "" || a.ID == "" {
		return false, fmt.Errorf("unlock achievement: %w: tracker and achievement id required", ErrInvalid)
	}
	q := `INSERT INTO achievements (tracker_id, achievement_id, unlocked_at) VALUES (` +
		s.arg(1) + `, ` + s.arg(2) + `, ` + s.arg(3) + `) ON CONFLICT (tracker_id, achievement_id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, q, trackerID, a.ID, toMillis(a.UnlockedAt))
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock achievement: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Close() error { return s.db.Close() }

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
