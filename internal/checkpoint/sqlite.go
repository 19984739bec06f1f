package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

const schema = `CREATE TABLE IF NOT EXISTS checkpoints (
	name       TEXT PRIMARY KEY,
	from_date  INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

const upsertCheckpoint = `INSERT INTO checkpoints (name, from_date, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET from_date = excluded.from_date, updated_at = excluded.updated_at`

// SQLite stores the checkpoint in a single-row table of a SQLite file.
type SQLite struct {
	db   *sqlx.DB
	name string
}

// OpenSQLite opens (creating if needed) the checkpoint database at path.
// name keys the row, so several pollers can share one file.
func OpenSQLite(ctx context.Context, path, name string) (*SQLite, error) {
	db, err := sqlx.ConnectContext(ctx, sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint db: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoint table: %w", err)
	}
	return &SQLite{db: db, name: name}, nil
}

func (s *SQLite) Load(ctx context.Context) (int64, bool, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `SELECT from_date FROM checkpoints WHERE name = ?`, s.name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return value, true, nil
}

func (s *SQLite) Save(ctx context.Context, value int64) error {
	if _, err := s.db.ExecContext(ctx, upsertCheckpoint, s.name, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
