package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/idx"
)

type clientsRepo struct {
	db dbtx
}

const clientColumns = `id, name, secret_hash, grant_types, scopes, protected, created_at, updated_at`

func (r *clientsRepo) Create(ctx context.Context, c *domain.Client) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.SecretHash,
		joinFields(c.AllowedGrantTypes), joinFields(c.Scopes),
		c.Protected, toUnix(now), toUnix(now),
	)
	return mapConstraint(err)
}

func (r *clientsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE id = ?`, id.String())
	return scanClient(row)
}

func (r *clientsRepo) GetByName(ctx context.Context, name string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE name = ?`, name)
	return scanClient(row)
}

func (r *clientsRepo) List(ctx context.Context) ([]*domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+clientColumns+` FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *clientsRepo) UpdateName(ctx context.Context, id idx.ID, name string) error {
	return r.update(ctx, id, `name = ?`, name)
}

func (r *clientsRepo) UpdateScopes(ctx context.Context, id idx.ID, scopes []string) error {
	return r.update(ctx, id, `scopes = ?`, joinFields(scopes))
}

func (r *clientsRepo) UpdateGrantTypes(ctx context.Context, id idx.ID, grantTypes []string) error {
	return r.update(ctx, id, `grant_types = ?`, joinFields(grantTypes))
}

func (r *clientsRepo) UpdateSecretHash(ctx context.Context, id idx.ID, hash string) error {
	return r.update(ctx, id, `secret_hash = ?`, hash)
}

func (r *clientsRepo) update(ctx context.Context, id idx.ID, setClause string, value any) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE clients SET `+setClause+`, updated_at = ? WHERE id = ?`,
		value, toUnix(time.Now()), id.String(),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireRow(res)
}

func (r *clientsRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *clientsRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*domain.Client, error) {
	var (
		c                      domain.Client
		id, grantTypes, scopes string
		createdAt, updatedAt   int64
	)
	err := row.Scan(&id, &c.Name, &c.SecretHash, &grantTypes, &scopes,
		&c.Protected, &createdAt, &updatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	c.ID, err = idx.Parse(id)
	if err != nil {
		return nil, err
	}
	c.AllowedGrantTypes = splitFields(grantTypes)
	c.Scopes = splitFields(scopes)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return &c, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
