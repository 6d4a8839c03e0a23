package revenue

import (
	"context"
	"database/sql"

	id "assetup/pkg/domain"
	txcontext "assetup/pkg/platform/tx"
)

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

func (s *Postgres) SetEnabled(ctx context.Context, assetID id.AssetID, enabled bool) error {
	if !enabled {
		_, err := s.execer(ctx).ExecContext(ctx, `
DELETE FROM revenue_sharing WHERE asset_id = $1
`, int64(assetID))
		return err
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO revenue_sharing (asset_id)
VALUES ($1)
ON CONFLICT (asset_id) DO NOTHING
`, int64(assetID))
	return err
}

func (s *Postgres) Enabled(ctx context.Context, assetID id.AssetID) (bool, error) {
	var enabled bool
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM revenue_sharing WHERE asset_id = $1)
`, int64(assetID)).Scan(&enabled)
	if err != nil {
		return false, err
	}
	return enabled, nil
}
