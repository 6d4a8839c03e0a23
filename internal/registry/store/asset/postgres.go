package asset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"assetup/internal/registry/models"
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

func (s *Postgres) Create(ctx context.Context, a *models.Asset) error {
	attrs, err := marshalAttributes(a.Attributes)
	if err != nil {
		return err
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
INSERT INTO registry_assets
  (registry_id, name, description, metadata_uri, purchase_value, owner,
   status, attributes, registered_at, last_transfer_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`,
		a.ID.String(), a.Name, a.Description, a.MetadataURI, a.PurchaseValue,
		a.Owner.String(), string(a.Status), attrs, a.RegisteredAt, a.LastTransferAt,
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

func (s *Postgres) Get(ctx context.Context, registryID id.RegistryID) (*models.Asset, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
SELECT registry_id, name, description, metadata_uri, purchase_value, owner,
       status, attributes, registered_at, last_transfer_at
  FROM registry_assets
 WHERE registry_id = $1
`, registryID.String())
	return scanAsset(row)
}

func (s *Postgres) Update(ctx context.Context, a *models.Asset) error {
	attrs, err := marshalAttributes(a.Attributes)
	if err != nil {
		return err
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
UPDATE registry_assets
   SET description = $2,
       metadata_uri = $3,
       owner = $4,
       status = $5,
       attributes = $6,
       last_transfer_at = $7
 WHERE registry_id = $1
`,
		a.ID.String(), a.Description, a.MetadataURI, a.Owner.String(),
		string(a.Status), attrs, a.LastTransferAt,
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

func (s *Postgres) ByOwner(ctx context.Context, owner id.Principal) ([]id.RegistryID, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
SELECT registry_id
  FROM registry_assets
 WHERE owner = $1
 ORDER BY registered_at
`, owner.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []id.RegistryID
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			return nil, err
		}
		out = append(out, id.RegistryID(rid))
	}
	return out, rows.Err()
}

func (s *Postgres) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT COUNT(*) FROM registry_assets
`).Scan(&count)
	return count, err
}

func scanAsset(row *sql.Row) (*models.Asset, error) {
	var a models.Asset
	var rid, owner, status string
	var attrs []byte
	var lastTransfer sql.NullTime
	err := row.Scan(
		&rid, &a.Name, &a.Description, &a.MetadataURI, &a.PurchaseValue,
		&owner, &status, &attrs, &a.RegisteredAt, &lastTransfer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ID = id.RegistryID(rid)
	a.Owner = id.Principal(owner)
	a.Status = models.Status(status)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &a.Attributes); err != nil {
			return nil, err
		}
	}
	if lastTransfer.Valid {
		t := lastTransfer.Time
		a.LastTransferAt = &t
	}
	return &a, nil
}

func marshalAttributes(attrs map[string]string) ([]byte, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	return json.Marshal(attrs)
}
