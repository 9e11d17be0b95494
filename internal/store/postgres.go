package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// pool is the minimal pgx pool surface the store needs; pgxmock satisfies it
// in tests.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    pool
	closeFn func()
}

// NewPostgres connects to the snapshot database.
func NewPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: p, closeFn: p.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	run_id       TEXT PRIMARY KEY,
	built_at     TIMESTAMPTZ NOT NULL,
	record_count INTEGER NOT NULL,
	data         JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_built_at ON snapshots(built_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, dir *model.Directory) error {
	data, err := json.Marshal(dir)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal snapshot")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (run_id, built_at, record_count, data) VALUES ($1, $2, $3, $4)`,
		dir.RunID, dir.BuiltAt.UTC(), len(dir.Records), data,
	)
	return eris.Wrapf(err, "postgres: insert snapshot %s", dir.RunID)
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, runID string) (*model.Directory, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE run_id = $1`, runID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: snapshot %s not found", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", runID)
	}
	return unmarshalSnapshot(string(data))
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context) (*model.Directory, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM snapshots ORDER BY built_at DESC, run_id DESC LIMIT 1`,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}
	return unmarshalSnapshot(string(data))
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, built_at, record_count FROM snapshots ORDER BY built_at DESC, run_id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.RunID, &info.BuiltAt, &info.RecordCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot row")
		}
		infos = append(infos, info)
	}
	return infos, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}
