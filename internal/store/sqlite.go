package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	run_id       TEXT PRIMARY KEY,
	built_at     DATETIME NOT NULL,
	record_count INTEGER NOT NULL,
	data         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_built_at ON snapshots(built_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, dir *model.Directory) error {
	data, err := json.Marshal(dir)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, built_at, record_count, data) VALUES (?, ?, ?, ?)`,
		dir.RunID, dir.BuiltAt.UTC(), len(dir.Records), string(data),
	)
	return eris.Wrapf(err, "sqlite: insert snapshot %s", dir.RunID)
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, runID string) (*model.Directory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE run_id = ?`, runID,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("sqlite: snapshot %s not found", runID)
		}
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", runID)
	}
	return unmarshalSnapshot(data)
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context) (*model.Directory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots ORDER BY built_at DESC, run_id DESC LIMIT 1`,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}
	return unmarshalSnapshot(data)
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, built_at, record_count FROM snapshots ORDER BY built_at DESC, run_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.RunID, &info.BuiltAt, &info.RecordCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot row")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func unmarshalSnapshot(data string) (*model.Directory, error) {
	var dir model.Directory
	if err := json.Unmarshal([]byte(data), &dir); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal snapshot")
	}
	return &dir, nil
}
