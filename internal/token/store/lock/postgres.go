package lock

import (
	"context"
	"database/sql"
	"errors"

	"assetup/internal/token/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	txcontext "assetup/pkg/platform/tx"
)

// Postgres persists locks keyed by (asset_id, holder).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Set(ctx context.Context, lock models.Lock) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO token_locks (asset_id, holder, until_ts)
VALUES ($1, $2, $3)
ON CONFLICT (asset_id, holder) DO UPDATE SET until_ts = EXCLUDED.until_ts
`, int64(lock.AssetID), lock.Holder.String(), lock.Until)
	return err
}

func (s *Postgres) Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (*models.Lock, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT until_ts FROM token_locks WHERE asset_id = $1 AND holder = $2
`, int64(assetID), holder.String())

	lock := models.Lock{AssetID: assetID, Holder: holder}
	err := row.Scan(&lock.Until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (s *Postgres) Remove(ctx context.Context, assetID id.AssetID, holder id.Principal) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
DELETE FROM token_locks WHERE asset_id = $1 AND holder = $2
`, int64(assetID), holder.String())
	return err
}
