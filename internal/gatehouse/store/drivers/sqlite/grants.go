package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/idx"
)

type grantsRepo struct {
	db dbtx
}

const grantColumns = `id, key, type, subject_id, client_id, session_id, data, created_at, expires_at, consumed_at`

func (r *grantsRepo) Create(ctx context.Context, g *domain.Grant) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	data := g.Data
	if data == nil {
		data = []byte{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO grants (`+grantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.Key, g.Type, g.SubjectID, g.ClientID.String(),
		g.SessionID, data, toUnix(g.CreatedAt), toUnix(g.ExpiresAt),
		toNullUnix(g.ConsumedAt),
	)
	return mapConstraint(err)
}

func (r *grantsRepo) GetByKey(ctx context.Context, key string) (*domain.Grant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+` FROM grants WHERE key = ?`, key)
	return scanGrant(row)
}

func (r *grantsRepo) ListBySubject(ctx context.Context, subjectID string) ([]*domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+` FROM grants
		WHERE subject_id = ? ORDER BY created_at DESC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Consume marks the grant used. The WHERE guard makes redemption atomic:
// a grant already consumed affects zero rows and reports ErrConsumed.
func (r *grantsRepo) Consume(ctx context.Context, key string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE grants SET consumed_at = ?
		WHERE key = ? AND consumed_at IS NULL`,
		toUnix(at), key,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing grant from a replayed one.
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM grants WHERE key = ?`, key).Scan(&exists)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return store.ErrConsumed
	}
	return nil
}

func (r *grantsRepo) Revoke(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM grants WHERE key = ?`, key)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *grantsRepo) RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM grants WHERE subject_id = ?`, subjectID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *grantsRepo) RevokeAllForSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM grants WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes expired grants in bounded batches so housekeeping
// never holds the writer for long. Consumed rows stay until they expire:
// a replayed refresh token must still resolve to its consumed grant so the
// session can be revoked.
func (r *grantsRepo) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM grants WHERE id IN (
			SELECT id FROM grants
			WHERE expires_at < ?
			LIMIT ?
		)`,
		toUnix(now), limit,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanGrant(row rowScanner) (*domain.Grant, error) {
	var (
		g                    domain.Grant
		id, clientID         string
		createdAt, expiresAt int64
		consumedAt           sql.NullInt64
	)
	err := row.Scan(&id, &g.Key, &g.Type, &g.SubjectID, &clientID,
		&g.SessionID, &g.Data, &createdAt, &expiresAt, &consumedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	g.ID, err = idx.Parse(id)
	if err != nil {
		return nil, err
	}
	g.ClientID, err = idx.Parse(clientID)
	if err != nil {
		return nil, err
	}
	g.CreatedAt = fromUnix(createdAt)
	g.ExpiresAt = fromUnix(expiresAt)
	g.ConsumedAt = fromNullUnix(consumedAt)
	return &g, nil
}
