package unclaimed

import (
	"context"
	"database/sql"
	"errors"

	"assetup/pkg/amount"
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

func (s *Postgres) Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	var amt amount.Amount
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT amount
  FROM unclaimed_dividends
 WHERE asset_id = $1 AND holder = $2
`, int64(assetID), holder.String()).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return amount.Zero(), nil
	}
	if err != nil {
		return amount.Zero(), err
	}
	return amt, nil
}

func (s *Postgres) Credit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO unclaimed_dividends (asset_id, holder, amount)
VALUES ($1, $2, $3)
ON CONFLICT (asset_id, holder) DO UPDATE
   SET amount = unclaimed_dividends.amount + EXCLUDED.amount
`, int64(assetID), holder.String(), amt)
	return err
}

// Take deletes the entry and returns what it held; zero when absent.
func (s *Postgres) Take(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	var amt amount.Amount
	err := s.execer(ctx).QueryRowContext(ctx, `
DELETE FROM unclaimed_dividends
 WHERE asset_id = $1 AND holder = $2
RETURNING amount
`, int64(assetID), holder.String()).Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return amount.Zero(), nil
	}
	if err != nil {
		return amount.Zero(), err
	}
	return amt, nil
}
