package registrar

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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Add(ctx context.Context, principal id.Principal) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
INSERT INTO authorized_registrars (principal)
VALUES ($1)
ON CONFLICT (principal) DO NOTHING
`, principal.String())
	return err
}

func (s *Postgres) Remove(ctx context.Context, principal id.Principal) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
DELETE FROM authorized_registrars WHERE principal = $1
`, principal.String())
	return err
}

func (s *Postgres) Contains(ctx context.Context, principal id.Principal) (bool, error) {
	var present bool
	err := s.execer(ctx).QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM authorized_registrars WHERE principal = $1)
`, principal.String()).Scan(&present)
	return present, err
}
