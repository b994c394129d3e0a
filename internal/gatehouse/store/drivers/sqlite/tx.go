package sqlite

import (
	"database/sql"

	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Clients() store.ClientsRepo         { return &clientsRepo{db: t.tx} }
func (t *txStore) Scopes() store.ScopesRepo           { return &scopesRepo{db: t.tx} }
func (t *txStore) Grants() store.GrantsRepo           { return &grantsRepo{db: t.tx} }
func (t *txStore) SigningKeys() store.SigningKeysRepo { return &signingKeysRepo{db: t.tx} }
