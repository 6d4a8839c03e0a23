package proposal

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/detokenization/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	txcontext "assetup/pkg/platform/tx"
)

// Postgres keeps one proposal row per asset; a partial unique index on
// unexecuted rows enforces the single-live-proposal rule.
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

func (s *Postgres) Create(ctx context.Context, p *models.Proposal) error {
	var rawID int64
	err := s.execer(ctx).QueryRowContext(ctx, `
INSERT INTO detokenization_proposals (asset_id, proposer, proposed_at, executed)
VALUES ($1, $2, $3, FALSE)
RETURNING proposal_id
`, int64(p.AssetID), p.Proposer.String(), p.ProposedAt).Scan(&rawID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return err
	}
	p.ProposalID = id.ProposalID(rawID)
	return nil
}

// Get returns the asset's most recent proposal.
func (s *Postgres) Get(ctx context.Context, assetID id.AssetID) (*models.Proposal, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT asset_id, proposal_id, proposer, proposed_at, executed, executed_at
  FROM detokenization_proposals
 WHERE asset_id = $1
 ORDER BY proposal_id DESC
 LIMIT 1
`, int64(assetID))

	var p models.Proposal
	var rawAsset, rawProposal int64
	var proposer string
	var executedAt sql.NullTime
	err := row.Scan(&rawAsset, &rawProposal, &proposer, &p.ProposedAt, &p.Executed, &executedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.AssetID = id.AssetID(rawAsset)
	p.ProposalID = id.ProposalID(rawProposal)
	p.Proposer = id.Principal(proposer)
	if executedAt.Valid {
		t := executedAt.Time
		p.ExecutedAt = &t
	}
	return &p, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Proposal) error {
	var executedAt sql.NullTime
	if p.ExecutedAt != nil {
		executedAt = sql.NullTime{Time: *p.ExecutedAt, Valid: true}
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE detokenization_proposals
   SET executed = $3,
       executed_at = $4
 WHERE asset_id = $1 AND proposal_id = $2
`, int64(p.AssetID), int64(p.ProposalID), p.Executed, executedAt)
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
