package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ferryhill/gatehouse/internal/gatehouse/domain"
	"github.com/ferryhill/gatehouse/internal/gatehouse/store"
	"github.com/ferryhill/gatehouse/pkg/cryptox"
	"github.com/ferryhill/gatehouse/pkg/idx"
	"github.com/ferryhill/gatehouse/pkg/jwtx"
	"github.com/ferryhill/gatehouse/pkg/slogx"
)

var (
	ErrInvalidClient  = errors.New("invalid_client")
	ErrInvalidGrant   = errors.New("invalid_grant")
	ErrInvalidScope   = errors.New("invalid_scope")
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrUnsupported    = errors.New("unsupported_grant_type")
)

type TokenService struct {
	KeyManager *jwtx.KeyManager
	Store      store.Store
	Issuer     string
	Audience   []string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ExchangeClientCredentials implements the OAuth2 client_credentials grant.
// The client authenticates with its name and secret; granted scopes are the
// intersection of the request with the client's registration, falling back
// to the deployment's default scopes when none are requested.
func (s *TokenService) ExchangeClientCredentials(
	ctx context.Context,
	clientID, clientSecret string,
	requestedScopes []string,
) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(domain.GrantTypeClientCredentials) {
		l.Info("grant type not allowed for client",
			slog.String("client", client.Name),
			slog.String("grant_type", domain.GrantTypeClientCredentials))
		return nil, ErrUnsupported
	}

	granted, err := s.resolveScopes(ctx, client, requestedScopes)
	if err != nil {
		return nil, err
	}

	sessionID := idx.New().String()
	pair, err := s.mintPair(ctx, client, sessionID, granted, []string{jwtx.AMRClient}, 0)
	if err != nil {
		return nil, err
	}

	l.Info("issued client_credentials token",
		slog.String("client", client.Name),
		slog.String("session_id", sessionID))
	return pair, nil
}

// ExchangeRefreshToken rotates a refresh token: the presented token is
// consumed and a fresh one issued in the same session. Presenting an
// already-consumed token is treated as theft and revokes the whole session.
func (s *TokenService) ExchangeRefreshToken(
	ctx context.Context,
	clientID, clientSecret, refreshOpaque string,
) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}
	if !client.AllowsGrantType(domain.GrantTypeRefreshToken) {
		return nil, ErrUnsupported
	}

	refreshOpaque = strings.TrimSpace(refreshOpaque)
	if refreshOpaque == "" {
		return nil, ErrInvalidRefresh
	}
	key := cryptox.FingerprintToken(refreshOpaque)

	// The exchange transaction rolls back on any protocol error, so the
	// theft response must not live inside it: the session is revoked in
	// its own committed transaction after this one unwinds.
	var replaySession string

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		grant, err := tx.Grants().GetByKey(ctx, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		if grant.ClientID != client.ID || grant.Type != domain.GrantKindRefreshToken {
			return ErrInvalidRefresh
		}
		if grant.Expired(now) {
			return ErrInvalidRefresh
		}

		if err := tx.Grants().Consume(ctx, key, now); err != nil {
			if errors.Is(err, store.ErrConsumed) {
				replaySession = grant.SessionID
				return ErrInvalidRefresh
			}
			return err
		}

		var data domain.RefreshTokenData
		if err := json.Unmarshal(grant.Data, &data); err != nil {
			return ErrInvalidRefresh
		}

		// Scopes may have been narrowed on the client since issuance.
		scopes := intersectScopes(data.Scopes, client.Scopes)

		pair, err = s.mintPairTx(ctx, tx, client, grant.SessionID, scopes,
			[]string{jwtx.AMRRefresh}, data.Generation+1)
		return err
	})
	if err != nil {
		if replaySession != "" {
			// Replay of a rotated token. Kill the session.
			n, rerr := s.Store.Grants().RevokeAllForSession(ctx, replaySession)
			if rerr != nil {
				l.Error("failed to revoke replayed session",
					slog.String("session_id", replaySession), slog.Any("err", rerr))
			} else {
				l.Warn("refresh token replay detected, session revoked",
					slog.String("client", client.Name),
					slog.String("session_id", replaySession),
					slog.Int64("grants_revoked", n))
			}
		}
		return nil, err
	}

	l.Info("rotated refresh token",
		slog.String("client", client.Name),
		slog.String("session_id", pair.SessionID))
	return pair, nil
}

// Revoke implements RFC 7009. Unknown tokens succeed silently; a client can
// only revoke its own grants.
func (s *TokenService) Revoke(ctx context.Context, clientID, clientSecret, token string) error {
	client, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	key := cryptox.FingerprintToken(strings.TrimSpace(token))
	grant, err := s.Store.Grants().GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if grant.ClientID != client.ID {
		return nil
	}
	return s.Store.Grants().Revoke(ctx, key)
}

// Introspect implements RFC 7662 for both access tokens (JWT) and refresh
// tokens (opaque, resolved against the grant store).
func (s *TokenService) Introspect(ctx context.Context, clientID, clientSecret, token string) (*domain.Introspection, error) {
	if _, err := s.authenticateClient(ctx, clientID, clientSecret); err != nil {
		return nil, err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return &domain.Introspection{Active: false}, nil
	}

	if claims, err := s.KeyManager.Verifier().Verify(token); err == nil {
		if claims.ValidateIssuer(s.Issuer) != nil {
			return &domain.Introspection{Active: false}, nil
		}
		return &domain.Introspection{
			Active:    true,
			Scope:     strings.Join(claims.Scopes, " "),
			ClientID:  claims.ClientName,
			Subject:   claims.Subject,
			TokenType: "access_token",
			ExpiresAt: claims.ExpiresAt.Unix(),
			IssuedAt:  claims.IssuedAt.Unix(),
			Issuer:    claims.Issuer,
			Audience:  claims.Audience,
			JTI:       claims.ID,
			SessionID: claims.SID,
		}, nil
	}

	grant, err := s.Store.Grants().GetByKey(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.Introspection{Active: false}, nil
		}
		return nil, err
	}
	if grant.Consumed() || grant.Expired(time.Now().UTC()) {
		return &domain.Introspection{Active: false}, nil
	}

	var data domain.RefreshTokenData
	_ = json.Unmarshal(grant.Data, &data)

	return &domain.Introspection{
		Active:    true,
		Scope:     strings.Join(data.Scopes, " "),
		Subject:   grant.SubjectID,
		TokenType: "refresh_token",
		ExpiresAt: grant.ExpiresAt.Unix(),
		IssuedAt:  grant.CreatedAt.Unix(),
		Issuer:    s.Issuer,
		SessionID: grant.SessionID,
	}, nil
}

func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	l := slogx.FromContext(ctx)

	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientSecret == "" {
		return nil, ErrInvalidClient
	}

	client, err := s.Store.Clients().GetByName(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}

	if err := cryptox.VerifySecret(clientSecret, client.SecretHash); err != nil {
		l.Info("client authentication failed", slog.String("client", clientID))
		return nil, ErrInvalidClient
	}
	return client, nil
}

func (s *TokenService) resolveScopes(ctx context.Context, client *domain.Client, requested []string) ([]string, error) {
	requested = dedupe(requested)

	if len(requested) == 0 {
		defaults, err := s.Store.Scopes().ListDefault(ctx)
		if err != nil {
			return nil, err
		}
		if len(defaults) == 0 {
			return client.Scopes, nil
		}
		names := make([]string, 0, len(defaults))
		for _, sc := range defaults {
			names = append(names, sc.Name)
		}
		if granted := intersectScopes(names, client.Scopes); len(granted) > 0 {
			return granted, nil
		}
		return client.Scopes, nil
	}

	// Requests beyond the registration narrow to the granted set.
	granted := intersectScopes(requested, client.Scopes)
	if len(granted) == 0 {
		return nil, ErrInvalidScope
	}
	return granted, nil
}

func (s *TokenService) mintPair(
	ctx context.Context,
	client *domain.Client,
	sessionID string,
	scopes, amr []string,
	generation int,
) (*domain.TokenPair, error) {
	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pair, err = s.mintPairTx(ctx, tx, client, sessionID, scopes, amr, generation)
		return err
	})
	return pair, err
}

func (s *TokenService) mintPairTx(
	ctx context.Context,
	tx store.Tx,
	client *domain.Client,
	sessionID string,
	scopes, amr []string,
	generation int,
) (*domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.signAccess(client, sessionID, scopes, amr, now)
	if err != nil {
		return nil, err
	}

	pair := &domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL().Seconds()),
		Scope:       scopes,
		SessionID:   sessionID,
	}

	if !client.AllowsGrantType(domain.GrantTypeRefreshToken) {
		return pair, nil
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(domain.RefreshTokenData{
		Scopes:     scopes,
		Generation: generation,
		IssuedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	grant := &domain.Grant{
		ID:        idx.New(),
		Key:       cryptox.FingerprintToken(opaque),
		Type:      domain.GrantKindRefreshToken,
		SubjectID: client.ID.String(),
		ClientID:  client.ID,
		SessionID: sessionID,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL()),
	}
	if err := tx.Grants().Create(ctx, grant); err != nil {
		return nil, err
	}

	pair.RefreshToken = opaque
	return pair, nil
}

func (s *TokenService) signAccess(
	client *domain.Client,
	sessionID string,
	scopes, amr []string,
	now time.Time,
) (string, error) {
	signer, err := s.KeyManager.GetSigner()
	if err != nil {
		return "", err
	}

	claims := jwtx.NewAccessClaims(
		client.ID.String(), sessionID, scopes, amr,
		s.accessTTL(), s.Issuer, s.Audience, client.Name, now,
	)
	return signer.Sign(claims)
}

func (s *TokenService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *TokenService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func intersectScopes(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, scope := range b {
		set[scope] = struct{}{}
	}

	var out []string
	for _, scope := range a {
		if _, ok := set[scope]; ok {
			out = append(out, scope)
		}
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
