package claim

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

func (s *Postgres) Create(ctx context.Context, c *models.Claim) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO insurance_claims
  (claim_id, policy_id, asset_id, claimant, claim_type, amount, status,
   filed_at, approved_amount)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`,
		c.ID.String(), c.PolicyID.String(), c.AssetID.String(), c.Claimant.String(),
		string(c.Type), c.Amount, string(c.Status), c.FiledAt, c.ApprovedAmount,
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

func (s *Postgres) Get(ctx context.Context, claimID models.ClaimID) (*models.Claim, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT claim_id, policy_id, asset_id, claimant, claim_type, amount, status,
       filed_at, approved_amount
  FROM insurance_claims
 WHERE claim_id = $1
`, claimID.String())

	var c models.Claim
	var cid, pid, assetID, claimant, ctype, status string
	err := row.Scan(
		&cid, &pid, &assetID, &claimant, &ctype, &c.Amount, &status,
		&c.FiledAt, &c.ApprovedAmount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ID = models.ClaimID(cid)
	c.PolicyID = id.PolicyID(pid)
	c.AssetID = id.RegistryID(assetID)
	c.Claimant = id.Principal(claimant)
	c.Type = models.ClaimType(ctype)
	c.Status = models.ClaimStatus(status)
	return &c, nil
}

func (s *Postgres) Update(ctx context.Context, c *models.Claim) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE insurance_claims
   SET status = $2,
       approved_amount = $3
 WHERE claim_id = $1
`, c.ID.String(), string(c.Status), c.ApprovedAmount)
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

func (s *Postgres) ByAsset(ctx context.Context, assetID id.RegistryID) ([]models.ClaimID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT claim_id
  FROM insurance_claims
 WHERE asset_id = $1
 ORDER BY filed_at
`, assetID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClaimID
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		out = append(out, models.ClaimID(cid))
	}
	return out, rows.Err()
}
