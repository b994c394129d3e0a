package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/idx"
)

var (
	ErrInvalidScopeName = errors.New("invalid_scope_name")
	ErrScopeInUse       = errors.New("scope_in_use")
)

// ScopeService is the admin surface for the scope catalogue.
type ScopeService struct {
	Store store.Store
}

func (s *ScopeService) CreateScope(
	ctx context.Context,
	name, displayName, description string,
	isDefault bool,
) (*domain.Scope, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return nil, ErrInvalidScopeName
	}

	scope := &domain.Scope{
		ID:          idx.New(),
		Name:        name,
		DisplayName: displayName,
		Description: description,
		Default:     isDefault,
	}
	if err := s.Store.Scopes().Create(ctx, scope); err != nil {
		return nil, err
	}
	return scope, nil
}

func (s *ScopeService) GetScope(ctx context.Context, name string) (*domain.Scope, error) {
	return s.Store.Scopes().GetByName(ctx, name)
}

func (s *ScopeService) ListScopes(ctx context.Context) ([]*domain.Scope, error) {
	return s.Store.Scopes().List(ctx)
}

func (s *ScopeService) UpdateScope(ctx context.Context, name string, upd domain.ScopeUpdate) error {
	return s.Store.Scopes().Update(ctx, name, upd)
}

// DeleteScope removes a scope from the catalogue. A scope still registered
// on any client refuses deletion so tokens never reference orphans.
func (s *ScopeService) DeleteScope(ctx context.Context, name string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		clients, err := tx.Clients().List(ctx)
		if err != nil {
			return err
		}
		for _, c := range clients {
			if c.HasScope(name) {
				return ErrScopeInUse
			}
		}
		return tx.Scopes().Delete(ctx, name)
	})
}
