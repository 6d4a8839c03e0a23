package balance

import (
	"context"
	"database/sql"
	"errors"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	txcontext "assetup/pkg/platform/tx"
)

// Postgres persists balances in token_balances. The holder set is the set of
// rows with a positive amount, ordered by first credit; rows are deleted the
// moment a balance reaches zero so no stale holders survive.
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

func (s *Postgres) Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (amount.Amount, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT amount FROM token_balances WHERE asset_id = $1 AND holder = $2
`, int64(assetID), holder.String())

	var amt amount.Amount
	err := row.Scan(&amt)
	if errors.Is(err, sql.ErrNoRows) {
		return amount.Zero(), nil
	}
	if err != nil {
		return amount.Zero(), err
	}
	return amt, nil
}

func (s *Postgres) Holders(ctx context.Context, assetID id.AssetID) ([]id.Principal, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT holder FROM token_balances WHERE asset_id = $1 ORDER BY first_credit_seq
`, int64(assetID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holders []id.Principal
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		holders = append(holders, id.Principal(h))
	}
	return holders, rows.Err()
}

func (s *Postgres) Credit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO token_balances (asset_id, holder, amount)
VALUES ($1, $2, $3)
ON CONFLICT (asset_id, holder)
DO UPDATE SET amount = token_balances.amount + EXCLUDED.amount
`, int64(assetID), holder.String(), amt)
	return err
}

func (s *Postgres) Debit(ctx context.Context, assetID id.AssetID, holder id.Principal, amt amount.Amount) error {
	ex := s.execer(ctx)
	res, err := ex.ExecContext(ctx, `
UPDATE token_balances
   SET amount = amount - $3
 WHERE asset_id = $1 AND holder = $2 AND amount >= $3
`, int64(assetID), holder.String(), amt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrInsufficient
	}
	_, err = ex.ExecContext(ctx, `
DELETE FROM token_balances WHERE asset_id = $1 AND holder = $2 AND amount = 0
`, int64(assetID), holder.String())
	return err
}

// Move runs the debit and credit against the same executor. Callers wrap the
// operation in a SQL transaction through the tx runner so both legs commit
// or neither does.
func (s *Postgres) Move(ctx context.Context, assetID id.AssetID, from, to id.Principal, amt amount.Amount) error {
	if err := s.Debit(ctx, assetID, from, amt); err != nil {
		return err
	}
	return s.Credit(ctx, assetID, to, amt)
}
