package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/pkg/idx"
)

type scopesRepo struct {
	db dbtx
}

const scopeColumns = `id, name, display_name, description, is_default, created_at, updated_at`

func (r *scopesRepo) Create(ctx context.Context, s *domain.Scope) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scopes (`+scopeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.Name, s.DisplayName, s.Description,
		s.Default, toUnix(now), toUnix(now),
	)
	return mapConstraint(err)
}

func (r *scopesRepo) GetByName(ctx context.Context, name string) (*domain.Scope, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+scopeColumns+` FROM scopes WHERE name = ?`, name)
	return scanScope(row)
}

func (r *scopesRepo) List(ctx context.Context) ([]*domain.Scope, error) {
	return r.list(ctx, ``)
}

func (r *scopesRepo) ListDefault(ctx context.Context) ([]*domain.Scope, error) {
	return r.list(ctx, `WHERE is_default = 1`)
}

func (r *scopesRepo) list(ctx context.Context, where string) ([]*domain.Scope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+scopeColumns+` FROM scopes `+where+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scope
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *scopesRepo) Update(ctx context.Context, name string, upd domain.ScopeUpdate) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if upd.DisplayName != nil {
		sets = append(sets, `display_name = ?`)
		args = append(args, *upd.DisplayName)
	}
	if upd.Description != nil {
		sets = append(sets, `description = ?`)
		args = append(args, *upd.Description)
	}
	if upd.Default != nil {
		sets = append(sets, `is_default = ?`)
		args = append(args, *upd.Default)
	}
	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, `updated_at = ?`)
	args = append(args, toUnix(time.Now()), name)

	res, err := r.db.ExecContext(ctx, `
		UPDATE scopes SET `+strings.Join(sets, ", ")+` WHERE name = ?`, args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *scopesRepo) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scopes WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *scopesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scopes`).Scan(&n); err != nil {
		return false, err
	}
	return n == 0, nil
}

func scanScope(row rowScanner) (*domain.Scope, error) {
	var (
		s                    domain.Scope
		id                   string
		createdAt, updatedAt int64
	)
	err := row.Scan(&id, &s.Name, &s.DisplayName, &s.Description,
		&s.Default, &createdAt, &updatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	s.ID, err = idx.Parse(id)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = fromUnix(createdAt)
	s.UpdatedAt = fromUnix(updatedAt)
	return &s, nil
}
