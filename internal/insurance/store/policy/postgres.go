package policy

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/insurance/models"
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

func (s *Postgres) Create(ctx context.Context, p *models.Policy) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO insurance_policies
  (policy_id, holder, insurer, asset_id, policy_type, coverage, deductible,
   premium, start_date, end_date, status, auto_renew, last_payment)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`,
		p.ID.String(), p.Holder.String(), p.Insurer.String(), p.AssetID.String(),
		string(p.Type), p.Coverage, p.Deductible, p.Premium,
		p.StartDate, p.EndDate, string(p.Status), p.AutoRenew, p.LastPayment,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT policy_id, holder, insurer, asset_id, policy_type, coverage, deductible,
       premium, start_date, end_date, status, auto_renew, last_payment
  FROM insurance_policies
 WHERE policy_id = $1
`, policyID.String())

	var p models.Policy
	var pid, holder, insurer, assetID, ptype, status string
	err := row.Scan(
		&pid, &holder, &insurer, &assetID, &ptype, &p.Coverage, &p.Deductible,
		&p.Premium, &p.StartDate, &p.EndDate, &status, &p.AutoRenew, &p.LastPayment,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID = id.PolicyID(pid)
	p.Holder = id.Principal(holder)
	p.Insurer = id.Principal(insurer)
	p.AssetID = id.RegistryID(assetID)
	p.Type = models.PolicyType(ptype)
	p.Status = models.PolicyStatus(status)
	return &p, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Policy) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE insurance_policies
   SET premium = $2,
       end_date = $3,
       status = $4,
       last_payment = $5
 WHERE policy_id = $1
`,
		p.ID.String(), p.Premium, p.EndDate, string(p.Status), p.LastPayment,
	)
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

func (s *Postgres) ByAsset(ctx context.Context, assetID id.RegistryID) ([]id.PolicyID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT policy_id
  FROM insurance_policies
 WHERE asset_id = $1
 ORDER BY start_date
`, assetID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.PolicyID
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		out = append(out, id.PolicyID(pid))
	}
	return out, rows.Err()
}
