package whitelist

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
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Add(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO transfer_whitelists (asset_id, principal)
VALUES ($1, $2)
ON CONFLICT (asset_id, principal) DO NOTHING
`, int64(assetID), principal.String())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Postgres) Remove(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
DELETE FROM transfer_whitelists
 WHERE asset_id = $1 AND principal = $2
`, int64(assetID), principal.String())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Postgres) Contains(ctx context.Context, assetID id.AssetID, principal id.Principal) (bool, error) {
	var present bool
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1 FROM transfer_whitelists
   WHERE asset_id = $1 AND principal = $2
)
`, int64(assetID), principal.String()).Scan(&present)
	if err != nil {
		return false, err
	}
	return present, nil
}

// List returns principals in insertion order via the added_seq sequence.
func (s *Postgres) List(ctx context.Context, assetID id.AssetID) ([]id.Principal, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT principal
  FROM transfer_whitelists
 WHERE asset_id = $1
 ORDER BY added_seq
`, int64(assetID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.Principal
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, id.Principal(p))
	}
	return out, rows.Err()
}
