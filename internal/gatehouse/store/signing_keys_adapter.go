package store

import (
	"context"
	"time"

	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

// KeyStoreAdapter exposes a SigningKeysRepo through the jwtx.KeyStore
// interface the persistent key manager consumes.
type KeyStoreAdapter struct {
	repo SigningKeysRepo
}

func NewKeyStoreAdapter(repo SigningKeysRepo) *KeyStoreAdapter {
	return &KeyStoreAdapter{repo: repo}
}

func (a *KeyStoreAdapter) SaveKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.repo.Create(ctx, rec)
}

func (a *KeyStoreAdapter) LoadKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	return a.repo.ListAll(ctx)
}

func (a *KeyStoreAdapter) RetireKey(ctx context.Context, kid string, retiredAt, notAfter time.Time) error {
	return a.repo.Retire(ctx, kid, retiredAt, notAfter)
}

func (a *KeyStoreAdapter) DeleteExpiredKeys(ctx context.Context, now time.Time) (int64, error) {
	return a.repo.DeleteExpired(ctx, now)
}
