package store

import (
	"context"
	"errors"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/pkg/idx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

// Sentinel errors every driver maps its native failures onto.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConsumed      = errors.New("store: grant already consumed")
)

// Store is the persistence root. Repositories obtained from it use the
// store's own connection; repositories obtained from a Tx share that
// transaction.
type Store interface {
	Clients() ClientsRepo
	Scopes() ScopesRepo
	Grants() GrantsRepo
	SigningKeys() SigningKeysRepo

	// ApplyMigrations brings both schema contexts up to date.
	ApplyMigrations() error

	BeginTx(ctx context.Context) (Tx, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is a transactional view of the store.
type Tx interface {
	Clients() ClientsRepo
	Scopes() ScopesRepo
	Grants() GrantsRepo
	SigningKeys() SigningKeysRepo

	Commit() error
	Rollback() error
}

// ClientsRepo persists registered clients (configuration context).
type ClientsRepo interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, id idx.ID) (*domain.Client, error)
	GetByName(ctx context.Context, name string) (*domain.Client, error)
	List(ctx context.Context) ([]*domain.Client, error)

	UpdateName(ctx context.Context, id idx.ID, name string) error
	UpdateScopes(ctx context.Context, id idx.ID, scopes []string) error
	UpdateGrantTypes(ctx context.Context, id idx.ID, grantTypes []string) error
	UpdateSecretHash(ctx context.Context, id idx.ID, hash string) error

	Delete(ctx context.Context, id idx.ID) error
	IsEmpty(ctx context.Context) (bool, error)
}

// ScopesRepo persists API scopes (configuration context).
type ScopesRepo interface {
	Create(ctx context.Context, s *domain.Scope) error
	GetByName(ctx context.Context, name string) (*domain.Scope, error)
	List(ctx context.Context) ([]*domain.Scope, error)
	ListDefault(ctx context.Context) ([]*domain.Scope, error)

	Update(ctx context.Context, name string, upd domain.ScopeUpdate) error
	Delete(ctx context.Context, name string) error
	IsEmpty(ctx context.Context) (bool, error)
}

// GrantsRepo persists issued grants (operational context).
type GrantsRepo interface {
	Create(ctx context.Context, g *domain.Grant) error
	GetByKey(ctx context.Context, key string) (*domain.Grant, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*domain.Grant, error)

	// Consume marks the grant used exactly once. A second call returns
	// ErrConsumed.
	Consume(ctx context.Context, key string, at time.Time) error

	Revoke(ctx context.Context, key string) error
	RevokeAllForSubject(ctx context.Context, subjectID string) (int64, error)
	RevokeAllForSession(ctx context.Context, sessionID string) (int64, error)

	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}

// SigningKeysRepo persists token signing keys (operational context). The
// record type lives in jwtx so the key manager stays store-agnostic.
type SigningKeysRepo interface {
	Create(ctx context.Context, rec jwtx.SigningKeyRecord) error
	GetByKid(ctx context.Context, kid string) (jwtx.SigningKeyRecord, error)
	ListAll(ctx context.Context) ([]jwtx.SigningKeyRecord, error)

	Retire(ctx context.Context, kid string, retiredAt, notAfter time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
