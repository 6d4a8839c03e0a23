package asset

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/token/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	txcontext "assetup/pkg/platform/tx"
)

// Postgres persists tokenized assets. Participates in the per-call SQL
// transaction when one is present in context.
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

func (s *Postgres) Create(ctx context.Context, asset *models.TokenizedAsset) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO tokenized_assets
  (asset_id, symbol, total_supply, decimals, tokenizer, min_voting_threshold,
   valuation, name, description, category, ipfs_uri, legal_docs_hash,
   valuation_report_hash, accredited_required, geographic_restrictions,
   detokenized, created_at, updated_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
`,
		int64(asset.ID), asset.Symbol, asset.TotalSupply, asset.Decimals,
		asset.Tokenizer.String(), asset.MinVotingThreshold, asset.Valuation,
		asset.Metadata.Name, asset.Metadata.Description, string(asset.Metadata.Category),
		asset.Metadata.IPFSURI, asset.Metadata.LegalDocsHash,
		asset.Metadata.ValuationReportHash, asset.Metadata.AccreditedInvestorRequired,
		pq.Array(asset.Metadata.GeographicRestrictions),
		asset.Detokenized, asset.CreatedAt, asset.UpdatedAt,
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

func (s *Postgres) Get(ctx context.Context, assetID id.AssetID) (*models.TokenizedAsset, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT asset_id, symbol, total_supply, decimals, tokenizer, min_voting_threshold,
       valuation, name, description, category, ipfs_uri, legal_docs_hash,
       valuation_report_hash, accredited_required, geographic_restrictions,
       detokenized, created_at, updated_at
  FROM tokenized_assets
 WHERE asset_id = $1
`, int64(assetID))

	var a models.TokenizedAsset
	var rawID int64
	var tokenizer, category string
	var regions pq.StringArray
	err := row.Scan(
		&rawID, &a.Symbol, &a.TotalSupply, &a.Decimals, &tokenizer,
		&a.MinVotingThreshold, &a.Valuation, &a.Metadata.Name,
		&a.Metadata.Description, &category, &a.Metadata.IPFSURI,
		&a.Metadata.LegalDocsHash, &a.Metadata.ValuationReportHash,
		&a.Metadata.AccreditedInvestorRequired, &regions,
		&a.Detokenized, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ID = id.AssetID(rawID)
	a.Tokenizer = id.Principal(tokenizer)
	a.Metadata.Category = models.AssetCategory(category)
	a.Metadata.GeographicRestrictions = regions
	return &a, nil
}

func (s *Postgres) Update(ctx context.Context, asset *models.TokenizedAsset) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE tokenized_assets
   SET total_supply = $2,
       min_voting_threshold = $3,
       valuation = $4,
       detokenized = $5,
       updated_at = $6
 WHERE asset_id = $1
`,
		int64(asset.ID), asset.TotalSupply, asset.MinVotingThreshold,
		asset.Valuation, asset.Detokenized, asset.UpdatedAt,
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
