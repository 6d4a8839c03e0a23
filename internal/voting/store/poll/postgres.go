package poll

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/pkg/amount"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	txcontext "assetup/pkg/platform/tx"
)

// Postgres stores one row per cast vote; the tally is their sum. The
// primary key (asset_id, proposal_id, voter) enforces one vote per voter.
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

func (s *Postgres) AddVote(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal, weight amount.Amount) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO proposal_votes (asset_id, proposal_id, voter, weight)
VALUES ($1, $2, $3, $4)
`, int64(assetID), int64(proposalID), voter.String(), weight)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Postgres) Tally(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID) (amount.Amount, error) {
	var count int64
	var tally amount.Amount
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(weight), 0)
  FROM proposal_votes
 WHERE asset_id = $1 AND proposal_id = $2
`, int64(assetID), int64(proposalID)).Scan(&count, &tally)
	if err != nil {
		return amount.Zero(), err
	}
	if count == 0 {
		return amount.Zero(), sentinel.ErrNotFound
	}
	return tally, nil
}

func (s *Postgres) HasVoted(ctx context.Context, assetID id.AssetID, proposalID id.ProposalID, voter id.Principal) (bool, error) {
	var voted bool
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1 FROM proposal_votes
   WHERE asset_id = $1 AND proposal_id = $2 AND voter = $3
)
`, int64(assetID), int64(proposalID), voter.String()).Scan(&voted)
	if err != nil {
		return false, err
	}
	return voted, nil
}
