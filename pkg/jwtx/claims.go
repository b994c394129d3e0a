package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens, week-long refresh grants; both
// can be overridden per service via configuration.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Authentication Method Reference values carried in the "amr" claim.
const (
	AMRClient  = "client"  // client_credentials grant
	AMRRefresh = "refresh" // token minted via refresh_token grant
)

// Claims are the access-token claims issued by the token service. Additive
// changes only, so resource services parsing these stay compatible.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session identifier, stable across refresh rotations.
	SID string `json:"sid,omitempty"`

	// Scopes the token grants, e.g. ["api:read", "admin:write"].
	Scopes []string `json:"scopes,omitempty"`

	// AMR records how the token was obtained ("client", "refresh").
	AMR []string `json:"amr,omitempty"`

	// ClientName is the display name of the client the token was issued to.
	ClientName string `json:"client_name,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(
	subject, sid string,
	scopes, amr []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	clientName string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:        sid,
		Scopes:     scopes,
		AMR:        amr,
		ClientName: clientName,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer when an expectation is configured.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry ensures the token is within its exp/nbf window.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
