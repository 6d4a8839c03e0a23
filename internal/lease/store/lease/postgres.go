package lease

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/lease/models"
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
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts the lease. A partial unique index on (asset_id) WHERE
// status = 'active' rejects a second active lease for the asset; that
// collision maps to ErrInvalidState, a duplicate lease id to ErrConflict.
func (s *Postgres) Create(ctx context.Context, l *models.Lease) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO leases
  (lease_id, asset_id, lessor, lessee, start_at, end_at,
   rent_per_period, deposit, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`,
		l.ID.String(), l.AssetID.String(), l.Lessor.String(), l.Lessee.String(),
		l.Start, l.End, l.RentPerPeriod, l.Deposit, string(l.Status),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			if pqErr.Constraint == "leases_active_asset_idx" {
				return sentinel.ErrInvalidState
			}
			return sentinel.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, leaseID id.LeaseID) (*models.Lease, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT lease_id, asset_id, lessor, lessee, start_at, end_at,
       rent_per_period, deposit, status
  FROM leases
 WHERE lease_id = $1
`, leaseID.String())
	return scanLease(row)
}

func (s *Postgres) Update(ctx context.Context, l *models.Lease) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE leases
   SET status = $2
 WHERE lease_id = $1
`, l.ID.String(), string(l.Status))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ActiveByAsset(ctx context.Context, assetID id.RegistryID) (*models.Lease, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT lease_id, asset_id, lessor, lessee, start_at, end_at,
       rent_per_period, deposit, status
  FROM leases
 WHERE asset_id = $1
   AND status = 'active'
`, assetID.String())
	return scanLease(row)
}

func (s *Postgres) ByLessee(ctx context.Context, lessee id.Principal) ([]id.LeaseID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT lease_id
  FROM leases
 WHERE lessee = $1
 ORDER BY start_at
`, lessee.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.LeaseID
	for rows.Next() {
		var lid string
		if err := rows.Scan(&lid); err != nil {
			return nil, err
		}
		out = append(out, id.LeaseID(lid))
	}
	return out, rows.Err()
}

func scanLease(row *sql.Row) (*models.Lease, error) {
	var l models.Lease
	var lid, assetID, lessor, lessee, status string
	err := row.Scan(
		&lid, &assetID, &lessor, &lessee, &l.Start, &l.End,
		&l.RentPerPeriod, &l.Deposit, &status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ID = id.LeaseID(lid)
	l.AssetID = id.RegistryID(assetID)
	l.Lessor = id.Principal(lessor)
	l.Lessee = id.Principal(lessee)
	l.Status = models.Status(status)
	return &l, nil
}
