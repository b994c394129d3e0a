package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
	"github.com/ferryhill/gatehouse/pkg/idx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

var (
	ErrProtectedClient = errors.New("protected_client")
	ErrInvalidName     = errors.New("invalid_client_name")
)

// ClientService is the admin surface for client registrations.
type ClientService struct {
	Store store.Store
}

// CreateClient registers a client and returns it with the generated
// plaintext secret. The secret is shown exactly once; only its hash is
// stored.
func (s *ClientService) CreateClient(
	ctx context.Context,
	name string,
	grantTypes, scopes []string,
) (*domain.Client, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", ErrInvalidName
	}
	if len(grantTypes) == 0 {
		grantTypes = []string{domain.GrantTypeClientCredentials}
	}

	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, "", err
	}
	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return nil, "", err
	}

	client := &domain.Client{
		ID:                idx.New(),
		Name:              name,
		SecretHash:        hash,
		AllowedGrantTypes: dedupe(grantTypes),
		Scopes:            dedupe(scopes),
	}
	if err := s.Store.Clients().Create(ctx, client); err != nil {
		return nil, "", err
	}

	slogx.FromContext(ctx).Info("client created", slog.String("client", name))
	return client, secret, nil
}

func (s *ClientService) GetClient(ctx context.Context, id idx.ID) (*domain.Client, error) {
	return s.Store.Clients().GetByID(ctx, id)
}

func (s *ClientService) ListClients(ctx context.Context) ([]*domain.Client, error) {
	return s.Store.Clients().List(ctx)
}

func (s *ClientService) RenameClient(ctx context.Context, id idx.ID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	return s.Store.Clients().UpdateName(ctx, id, name)
}

func (s *ClientService) UpdateClientScopes(ctx context.Context, id idx.ID, scopes []string) error {
	return s.Store.Clients().UpdateScopes(ctx, id, dedupe(scopes))
}

func (s *ClientService) UpdateClientGrantTypes(ctx context.Context, id idx.ID, grantTypes []string) error {
	return s.Store.Clients().UpdateGrantTypes(ctx, id, dedupe(grantTypes))
}

// RotateClientSecret replaces the client secret, returning the new
// plaintext, and drops all grants issued under the old one.
func (s *ClientService) RotateClientSecret(ctx context.Context, id idx.ID) (string, error) {
	secret, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	hash, err := cryptox.HashSecret(secret)
	if err != nil {
		return "", err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Clients().UpdateSecretHash(ctx, id, hash); err != nil {
			return err
		}
		_, err := tx.Grants().RevokeAllForSubject(ctx, id.String())
		return err
	})
	if err != nil {
		return "", err
	}

	slogx.FromContext(ctx).Info("client secret rotated", slog.String("client_id", id.String()))
	return secret, nil
}

// DeleteClient removes a client and every grant issued to it. Seeded
// clients are protected and refuse deletion.
func (s *ClientService) DeleteClient(ctx context.Context, id idx.ID) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		client, err := tx.Clients().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if client.Protected {
			return ErrProtectedClient
		}

		if _, err := tx.Grants().RevokeAllForSubject(ctx, id.String()); err != nil {
			return err
		}
		return tx.Clients().Delete(ctx, id)
	})
}

// ListClientGrants returns the live grants issued to a client, newest
// first, for audit tooling.
func (s *ClientService) ListClientGrants(ctx context.Context, id idx.ID) ([]*domain.Grant, error) {
	return s.Store.Grants().ListBySubject(ctx, id.String())
}

// RevokeClientGrants drops every grant issued to a client.
func (s *ClientService) RevokeClientGrants(ctx context.Context, id idx.ID) (int64, error) {
	n, err := s.Store.Grants().RevokeAllForSubject(ctx, id.String())
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("client grants revoked",
		slog.String("client_id", id.String()), slog.Int64("count", n))
	return n, nil
}
