package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/idx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "gatehouse.db")
	s, err := NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestMigrationContextsAreIndependent(t *testing.T) {
	s := newTestStore(t)

	for _, name := range MigrationContextNames() {
		version, dirty, err := s.ContextVersion(name)
		require.NoError(t, err)
		require.False(t, dirty)
		require.NotZero(t, version, "context %s should be migrated", name)
	}

	_, _, err := s.ContextVersion("bogus")
	require.Error(t, err)
}

func TestClientsRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Clients()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	c := &domain.Client{
		ID:                idx.New(),
		Name:              "billing-worker",
		SecretHash:        "$argon2id$hash",
		AllowedGrantTypes: []string{domain.GrantTypeClientCredentials},
		Scopes:            []string{"api:read", "api:write"},
	}
	require.NoError(t, repo.Create(ctx, c))

	empty, err = repo.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	t.Run("duplicate name rejected", func(t *testing.T) {
		dup := &domain.Client{ID: idx.New(), Name: "billing-worker", SecretHash: "x"}
		require.ErrorIs(t, repo.Create(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("roundtrip", func(t *testing.T) {
		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, c.Name, got.Name)
		require.Equal(t, c.AllowedGrantTypes, got.AllowedGrantTypes)
		require.Equal(t, c.Scopes, got.Scopes)

		byName, err := repo.GetByName(ctx, "billing-worker")
		require.NoError(t, err)
		require.Equal(t, c.ID, byName.ID)
	})

	t.Run("updates", func(t *testing.T) {
		require.NoError(t, repo.UpdateScopes(ctx, c.ID, []string{"api:read"}))
		require.NoError(t, repo.UpdateName(ctx, c.ID, "billing"))
		require.NoError(t, repo.UpdateGrantTypes(ctx, c.ID,
			[]string{domain.GrantTypeClientCredentials, domain.GrantTypeRefreshToken}))
		require.NoError(t, repo.UpdateSecretHash(ctx, c.ID, "$argon2id$new"))

		got, err := repo.GetByID(ctx, c.ID)
		require.NoError(t, err)
		require.Equal(t, "billing", got.Name)
		require.Equal(t, []string{"api:read"}, got.Scopes)
		require.Equal(t, "$argon2id$new", got.SecretHash)
	})

	t.Run("missing rows", func(t *testing.T) {
		_, err := repo.GetByID(ctx, idx.New())
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, repo.UpdateName(ctx, idx.New(), "x"), store.ErrNotFound)
		require.ErrorIs(t, repo.Delete(ctx, idx.New()), store.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, c.ID))
		_, err := repo.GetByID(ctx, c.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestScopesRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Scopes()

	for _, sc := range []*domain.Scope{
		{ID: idx.New(), Name: "api:read", DisplayName: "Read", Default: true},
		{ID: idx.New(), Name: "api:write", DisplayName: "Write"},
		{ID: idx.New(), Name: "admin", DisplayName: "Admin"},
	} {
		require.NoError(t, repo.Create(ctx, sc))
	}

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	defaults, err := repo.ListDefault(ctx)
	require.NoError(t, err)
	require.Len(t, defaults, 1)
	require.Equal(t, "api:read", defaults[0].Name)

	t.Run("partial update", func(t *testing.T) {
		desc := "write access"
		def := true
		require.NoError(t, repo.Update(ctx, "api:write", domain.ScopeUpdate{
			Description: &desc,
			Default:     &def,
		}))

		got, err := repo.GetByName(ctx, "api:write")
		require.NoError(t, err)
		require.Equal(t, "write access", got.Description)
		require.True(t, got.Default)
		require.Equal(t, "Write", got.DisplayName)
	})

	t.Run("empty update is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, "admin", domain.ScopeUpdate{}))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "admin"))
		_, err := repo.GetByName(ctx, "admin")
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestGrantsRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.Grants()
	now := time.Now().UTC()

	clientID := idx.New()
	g := &domain.Grant{
		ID:        idx.New(),
		Key:       "fp-1",
		Type:      domain.GrantKindRefreshToken,
		SubjectID: clientID.String(),
		ClientID:  clientID,
		SessionID: "sess-1",
		Data:      []byte(`{"scopes":["api:read"]}`),
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, g))

	t.Run("get by key", func(t *testing.T) {
		got, err := repo.GetByKey(ctx, "fp-1")
		require.NoError(t, err)
		require.Equal(t, g.SubjectID, got.SubjectID)
		require.Equal(t, g.Data, got.Data)
		require.False(t, got.Consumed())
	})

	t.Run("nil data stored as empty payload", func(t *testing.T) {
		bare := &domain.Grant{
			ID: idx.New(), Key: "fp-bare", Type: domain.GrantKindRefreshToken,
			SubjectID: clientID.String(), ClientID: clientID,
			SessionID: "sess-bare", ExpiresAt: now.Add(time.Hour),
		}
		require.NoError(t, repo.Create(ctx, bare))

		got, err := repo.GetByKey(ctx, "fp-bare")
		require.NoError(t, err)
		require.Empty(t, got.Data)

		// Only duplicate keys report ErrAlreadyExists.
		dup := *bare
		dup.ID = idx.New()
		require.ErrorIs(t, repo.Create(ctx, &dup), store.ErrAlreadyExists)

		require.NoError(t, repo.Revoke(ctx, "fp-bare"))
	})

	t.Run("consume exactly once", func(t *testing.T) {
		require.NoError(t, repo.Consume(ctx, "fp-1", now))
		require.ErrorIs(t, repo.Consume(ctx, "fp-1", now), store.ErrConsumed)
		require.ErrorIs(t, repo.Consume(ctx, "missing", now), store.ErrNotFound)

		got, err := repo.GetByKey(ctx, "fp-1")
		require.NoError(t, err)
		require.True(t, got.Consumed())
	})

	t.Run("session revocation", func(t *testing.T) {
		other := &domain.Grant{
			ID: idx.New(), Key: "fp-2", Type: domain.GrantKindRefreshToken,
			SubjectID: clientID.String(), ClientID: clientID,
			SessionID: "sess-2", ExpiresAt: now.Add(time.Hour),
		}
		require.NoError(t, repo.Create(ctx, other))

		n, err := repo.RevokeAllForSession(ctx, "sess-2")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
	})

	t.Run("expired sweep", func(t *testing.T) {
		expired := &domain.Grant{
			ID: idx.New(), Key: "fp-3", Type: domain.GrantKindRefreshToken,
			SubjectID: clientID.String(), ClientID: clientID,
			ExpiresAt: now.Add(-time.Minute),
		}
		require.NoError(t, repo.Create(ctx, expired))

		// Only fp-3 is past expiry. fp-1 is consumed but still live, and
		// must survive the sweep so a replayed token can be traced back.
		n, err := repo.DeleteExpired(ctx, now, 100)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = repo.GetByKey(ctx, "fp-3")
		require.ErrorIs(t, err, store.ErrNotFound)

		kept, err := repo.GetByKey(ctx, "fp-1")
		require.NoError(t, err)
		require.NotNil(t, kept.ConsumedAt)
	})
}

func TestSigningKeysRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	repo := s.SigningKeys()
	now := time.Now().UTC()

	rec := jwtx.SigningKeyRecord{
		Kid:           "eddsa-abc123",
		Alg:           jwtx.AlgEdDSA,
		PrivateKeyPEM: []byte("sealed"),
		CreatedAt:     now,
	}
	require.NoError(t, repo.Create(ctx, rec))
	require.ErrorIs(t, repo.Create(ctx, rec), store.ErrAlreadyExists)

	got, err := repo.GetByKid(ctx, rec.Kid)
	require.NoError(t, err)
	require.True(t, got.Active())
	require.Equal(t, rec.PrivateKeyPEM, got.PrivateKeyPEM)

	require.NoError(t, repo.Retire(ctx, rec.Kid, now, now.Add(time.Hour)))
	got, err = repo.GetByKid(ctx, rec.Kid)
	require.NoError(t, err)
	require.False(t, got.Active())

	// Not yet past not_after.
	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = repo.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		c := &domain.Client{ID: idx.New(), Name: "tx-client", SecretHash: "x"}
		if err := tx.Clients().Create(ctx, c); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.Clients().GetByName(ctx, "tx-client")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxCommits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Clients().Create(ctx, &domain.Client{
			ID: idx.New(), Name: "tx-client", SecretHash: "x",
		})
	})
	require.NoError(t, err)

	_, err = s.Clients().GetByName(ctx, "tx-client")
	require.NoError(t, err)
}
