package restriction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/restriction/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
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

// Set upserts the asset's restriction record, replacing it wholesale.
func (s *Postgres) Set(ctx context.Context, r models.Restriction) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO transfer_restrictions (asset_id, require_accredited, geographic_allowed, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (asset_id) DO UPDATE
   SET require_accredited = EXCLUDED.require_accredited,
       geographic_allowed = EXCLUDED.geographic_allowed,
       updated_at = EXCLUDED.updated_at
`,
		int64(r.AssetID), r.RequireAccredited, pq.Array(r.GeographicAllowed), r.UpdatedAt,
	)
	return err
}

func (s *Postgres) Get(ctx context.Context, assetID id.AssetID) (*models.Restriction, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT asset_id, require_accredited, geographic_allowed, updated_at
  FROM transfer_restrictions
 WHERE asset_id = $1
`, int64(assetID))

	var r models.Restriction
	var rawID int64
	var regions pq.StringArray
	err := row.Scan(&rawID, &r.RequireAccredited, &regions, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.AssetID = id.AssetID(rawID)
	r.GeographicAllowed = regions
	return &r, nil
}

func (s *Postgres) Remove(ctx context.Context, assetID id.AssetID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
DELETE FROM transfer_restrictions WHERE asset_id = $1
`, int64(assetID))
	return err
}
