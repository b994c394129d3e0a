package gatehouse_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferryhill/gatehouse/pkg/gatesdk"
)

// TestClientCredentialsFlow walks the primary machine-to-machine path:
// the seeded admin registers a service client, the service client exchanges
// its credentials for a token, and the token introspects as active.
func TestClientCredentialsFlow(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)

	_, err := admin.CreateScope(t.Context(), gatesdk.CreateScopeRequest{
		Name: "api:read", DisplayName: "Read API",
	})
	require.NoError(t, err)

	_, secret := createTestClient(t, admin, "worker",
		[]string{"client_credentials"}, []string{"api:read"})

	client := gatesdk.New(baseURL)
	resp, err := client.RequestToken(t.Context(), "worker", secret, []string{"api:read"})
	require.NoError(t, err)
	assertTokenResponse(t, resp)
	require.Contains(t, resp.Scope, "api:read")
	require.Empty(t, resp.RefreshToken, "client without refresh_token grant gets no refresh token")

	intro, err := client.IntrospectToken(t.Context(), "worker", secret, resp.AccessToken)
	require.NoError(t, err)
	require.True(t, intro.Active)
	require.Contains(t, intro.Scope, "api:read")
}

func TestClientCredentialsWrongSecret(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	createTestClient(t, admin, "worker", []string{"client_credentials"}, nil)

	client := gatesdk.New(baseURL)
	_, err := client.RequestToken(t.Context(), "worker", "wrong-secret", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_client")
}

func TestClientCredentialsScopeNarrowing(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	for _, name := range []string{"api:read", "api:write"} {
		_, err := admin.CreateScope(t.Context(), gatesdk.CreateScopeRequest{Name: name})
		require.NoError(t, err)
	}
	_, secret := createTestClient(t, admin, "reader",
		[]string{"client_credentials"}, []string{"api:read"})

	client := gatesdk.New(baseURL)

	// Requesting beyond the registration narrows to the granted set.
	resp, err := client.RequestToken(t.Context(), "reader", secret,
		[]string{"api:read", "api:write"})
	require.NoError(t, err)
	require.Contains(t, resp.Scope, "api:read")
	require.NotContains(t, strings.Split(resp.Scope, " "), "api:write")
}

// TestRefreshTokenRotation verifies the refresh grant rotates on every use
// and that replaying a consumed token kills the whole session.
func TestRefreshTokenRotation(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	_, secret := createTestClient(t, admin, "session-worker",
		[]string{"client_credentials", "refresh_token"}, nil)

	client := gatesdk.New(baseURL)
	first, err := client.RequestToken(t.Context(), "session-worker", secret, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.RefreshToken)

	second, err := client.RefreshToken(t.Context(), "session-worker", secret, first.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, second.RefreshToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken, "refresh token must rotate")
	require.Equal(t, first.SessionID, second.SessionID, "rotation stays in the same session")

	// Replay of the consumed token fails and revokes the session.
	_, err = client.RefreshToken(t.Context(), "session-worker", secret, first.RefreshToken)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid_grant")

	_, err = client.RefreshToken(t.Context(), "session-worker", secret, second.RefreshToken)
	require.Error(t, err, "replay detection revokes the successor too")
}

func TestRevokeRefreshToken(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	_, secret := createTestClient(t, admin, "revoker",
		[]string{"client_credentials", "refresh_token"}, nil)

	client := gatesdk.New(baseURL)
	resp, err := client.RequestToken(t.Context(), "revoker", secret, nil)
	require.NoError(t, err)

	err = client.RevokeToken(t.Context(), "revoker", secret, resp.RefreshToken)
	require.NoError(t, err)

	_, err = client.RefreshToken(t.Context(), "revoker", secret, resp.RefreshToken)
	require.Error(t, err, "revoked refresh token must not refresh")

	// Revoking an unknown token still returns 200 per RFC 7009.
	err = client.RevokeToken(t.Context(), "revoker", secret, "not-a-real-token")
	require.NoError(t, err)
}

func TestIntrospectRevokedToken(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	_, secret := createTestClient(t, admin, "inspector",
		[]string{"client_credentials", "refresh_token"}, nil)

	client := gatesdk.New(baseURL)
	resp, err := client.RequestToken(t.Context(), "inspector", secret, nil)
	require.NoError(t, err)

	intro, err := client.IntrospectToken(t.Context(), "inspector", secret, resp.RefreshToken)
	require.NoError(t, err)
	require.True(t, intro.Active)

	require.NoError(t, client.RevokeToken(t.Context(), "inspector", secret, resp.RefreshToken))

	intro, err = client.IntrospectToken(t.Context(), "inspector", secret, resp.RefreshToken)
	require.NoError(t, err)
	require.False(t, intro.Active, "revoked token introspects as inactive")
}

func TestJWKSServed(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	client := gatesdk.New(baseURL)
	raw, err := client.JWKS(t.Context())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"keys"`)
	require.Contains(t, string(raw), `"kid"`)
}
