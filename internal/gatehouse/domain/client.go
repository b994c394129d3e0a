package domain

import (
	"slices"
	"time"

	"github.com/ferryhill/gatehouse/pkg/idx"
)

// Grant types a client may be allowed to use.
const (
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
)

// Client is a registered OAuth2 client. Machine credentials only; there is
// no interactive user model.
type Client struct {
	ID                idx.ID
	Name              string
	SecretHash        string
	AllowedGrantTypes []string
	Scopes            []string

	// Protected clients were created by seeding and cannot be deleted
	// through the admin API.
	Protected bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c *Client) AllowsGrantType(gt string) bool {
	return slices.Contains(c.AllowedGrantTypes, gt)
}

// HasScope reports whether the scope is registered on the client.
func (c *Client) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}
