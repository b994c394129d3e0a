// Package gatesdk is the typed client and wire types for the gatehouse
// token service. Services consuming gatehouse should depend on this package
// rather than hand-rolling requests.
package gatesdk

import "time"

// TokenResponse is the body of a successful POST /v1/oauth2/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// IntrospectionResponse is the RFC 7662 response body.
type IntrospectionResponse struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	ExpiresAt int64    `json:"exp,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	Issuer    string   `json:"iss,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	JTI       string   `json:"jti,omitempty"`
	SessionID string   `json:"sid,omitempty"`
}

// ClientInfo is the admin API view of a client registration. The secret
// only appears in CreateClientResponse and RotateSecretResponse.
type ClientInfo struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AllowedGrantTypes []string  `json:"allowed_grant_types"`
	Scopes            []string  `json:"scopes"`
	Protected         bool      `json:"protected"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CreateClientRequest struct {
	Name              string   `json:"name"`
	AllowedGrantTypes []string `json:"allowed_grant_types,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
}

type CreateClientResponse struct {
	Client ClientInfo `json:"client"`
	Secret string     `json:"secret"`
}

type UpdateClientRequest struct {
	Name              *string  `json:"name,omitempty"`
	AllowedGrantTypes []string `json:"allowed_grant_types,omitempty"`
	Scopes            []string `json:"scopes,omitempty"`
}

type RotateSecretResponse struct {
	Secret string `json:"secret"`
}

// Scope is the admin API view of a catalogue scope.
type Scope struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Default     bool      `json:"default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateScopeRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default"`
}

type UpdateScopeRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Default     *bool   `json:"default,omitempty"`
}

// Grant is the audit view of a persisted grant. Key is a fingerprint, never
// usable as a credential.
type Grant struct {
	ID         string     `json:"id"`
	Key        string     `json:"key"`
	Type       string     `json:"type"`
	SubjectID  string     `json:"subject_id"`
	ClientID   string     `json:"client_id"`
	SessionID  string     `json:"session_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

type RevokeGrantsResponse struct {
	Revoked int64 `json:"revoked"`
}

type RotateKeyResponse struct {
	Kid string `json:"kid"`
}

// HealthResponse is served by /livez and /readyz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}
