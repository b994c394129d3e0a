package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
	"github.com/ferryhill/gatehouse/pkg/idx"
)

// SeedService reconciles declared initial configuration with the store.
// Each section applies only when its table is empty: an operator edit after
// first boot is never clobbered by a restart.
type SeedService struct {
	Store  store.Store
	Logger *slog.Logger
}

// SeedReport records what Apply actually wrote.
type SeedReport struct {
	ScopesSeeded  int
	ClientsSeeded int
}

// LoadSeedFile reads seed data from a JSON file.
func LoadSeedFile(path string) (*domain.SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var data domain.SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &data, nil
}

// DefaultSeedData is the built-in bootstrap configuration used when no seed
// file is configured: one admin client able to manage the deployment.
func DefaultSeedData(adminSecret string) *domain.SeedData {
	return &domain.SeedData{
		Scopes: []domain.SeedScope{
			{Name: "admin:clients", DisplayName: "Manage Clients", Description: "Create, update and delete client registrations"},
			{Name: "admin:scopes", DisplayName: "Manage Scopes", Description: "Maintain the scope catalogue"},
			{Name: "admin:keys", DisplayName: "Manage Keys", Description: "Rotate token signing keys"},
		},
		Clients: []domain.SeedClient{
			{
				Name:              "gatehouse-admin",
				Secret:            adminSecret,
				AllowedGrantTypes: []string{domain.GrantTypeClientCredentials},
				Scopes:            []string{"admin:clients", "admin:scopes", "admin:keys"},
			},
		},
	}
}

// Apply seeds scopes and clients inside one transaction. Scope names
// referenced by seed clients must exist, either already persisted or in the
// seed itself.
func (s *SeedService) Apply(ctx context.Context, data *domain.SeedData) (*SeedReport, error) {
	report := &SeedReport{}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		scopesSeeded, err := s.applyScopes(ctx, tx, data.Scopes)
		if err != nil {
			return err
		}
		report.ScopesSeeded = scopesSeeded

		clientsSeeded, err := s.applyClients(ctx, tx, data.Clients)
		if err != nil {
			return err
		}
		report.ClientsSeeded = clientsSeeded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("seed applied",
		slog.Int("scopes", report.ScopesSeeded),
		slog.Int("clients", report.ClientsSeeded))
	return report, nil
}

func (s *SeedService) applyScopes(ctx context.Context, tx store.Tx, seeds []domain.SeedScope) (int, error) {
	empty, err := tx.Scopes().IsEmpty(ctx)
	if err != nil {
		return 0, err
	}
	if !empty {
		s.Logger.Debug("scopes already present, seed section skipped")
		return 0, nil
	}

	for _, seed := range seeds {
		scope := &domain.Scope{
			ID:          idx.New(),
			Name:        seed.Name,
			DisplayName: seed.DisplayName,
			Description: seed.Description,
			Default:     seed.Default,
		}
		if err := tx.Scopes().Create(ctx, scope); err != nil {
			return 0, fmt.Errorf("seed scope %s: %w", seed.Name, err)
		}
	}
	return len(seeds), nil
}

func (s *SeedService) applyClients(ctx context.Context, tx store.Tx, seeds []domain.SeedClient) (int, error) {
	empty, err := tx.Clients().IsEmpty(ctx)
	if err != nil {
		return 0, err
	}
	if !empty {
		s.Logger.Debug("clients already present, seed section skipped")
		return 0, nil
	}

	for _, seed := range seeds {
		for _, scope := range seed.Scopes {
			if _, err := tx.Scopes().GetByName(ctx, scope); err != nil {
				return 0, fmt.Errorf("seed client %s references unknown scope %s: %w",
					seed.Name, scope, err)
			}
		}

		hash, err := cryptox.HashSecret(seed.Secret)
		if err != nil {
			return 0, fmt.Errorf("seed client %s: %w", seed.Name, err)
		}

		grantTypes := seed.AllowedGrantTypes
		if len(grantTypes) == 0 {
			grantTypes = []string{domain.GrantTypeClientCredentials}
		}

		client := &domain.Client{
			ID:                idx.New(),
			Name:              seed.Name,
			SecretHash:        hash,
			AllowedGrantTypes: dedupe(grantTypes),
			Scopes:            dedupe(seed.Scopes),
			Protected:         true,
		}
		if err := tx.Clients().Create(ctx, client); err != nil {
			return 0, fmt.Errorf("seed client %s: %w", seed.Name, err)
		}
	}
	return len(seeds), nil
}
