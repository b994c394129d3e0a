package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

type signingKeysRepo struct {
	db dbtx
}

const signingKeyColumns = `kid, alg, private_pem, created_at, retired_at, not_after`

func (r *signingKeysRepo) Create(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (`+signingKeyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Kid, rec.Alg, rec.PrivateKeyPEM, toUnix(rec.CreatedAt),
		toNullUnix(rec.RetiredAt), toNullUnix(rec.NotAfter),
	)
	return mapConstraint(err)
}

func (r *signingKeysRepo) GetByKid(ctx context.Context, kid string) (jwtx.SigningKeyRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+signingKeyColumns+` FROM signing_keys WHERE kid = ?`, kid)
	return scanSigningKey(row)
}

func (r *signingKeysRepo) ListAll(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+signingKeyColumns+` FROM signing_keys ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []jwtx.SigningKeyRecord
	for rows.Next() {
		rec, err := scanSigningKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *signingKeysRepo) Retire(ctx context.Context, kid string, retiredAt, notAfter time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE signing_keys SET retired_at = ?, not_after = ? WHERE kid = ?`,
		toUnix(retiredAt), toUnix(notAfter), kid,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *signingKeysRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM signing_keys
		WHERE not_after IS NOT NULL AND not_after < ?`,
		toUnix(now),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSigningKey(row rowScanner) (jwtx.SigningKeyRecord, error) {
	var (
		rec                 jwtx.SigningKeyRecord
		createdAt           int64
		retiredAt, notAfter sql.NullInt64
	)
	err := row.Scan(&rec.Kid, &rec.Alg, &rec.PrivateKeyPEM,
		&createdAt, &retiredAt, &notAfter)
	if err != nil {
		return jwtx.SigningKeyRecord{}, mapNotFound(err)
	}

	rec.CreatedAt = fromUnix(createdAt)
	rec.RetiredAt = fromNullUnix(retiredAt)
	rec.NotAfter = fromNullUnix(notAfter)
	return rec, nil
}
