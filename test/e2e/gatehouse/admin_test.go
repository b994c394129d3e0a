package gatehouse_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferryhill/gatehouse/pkg/gatesdk"
)

func TestAdminRequiresToken(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	anon := gatesdk.New(baseURL)
	_, err := anon.ListClients(t.Context())
	requireStatus(t, err, 401)
}

func TestClientLifecycle(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)

	id, secret := createTestClient(t, admin, "lifecycle",
		[]string{"client_credentials"}, nil)

	got, err := admin.GetClient(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, "lifecycle", got.Name)
	require.False(t, got.Protected)

	// Rotating the secret invalidates the old one.
	rotated, err := admin.RotateClientSecret(t.Context(), id)
	require.NoError(t, err)
	require.NotEqual(t, secret, rotated.Secret)

	client := gatesdk.New(baseURL)
	_, err = client.RequestToken(t.Context(), "lifecycle", secret, nil)
	require.Error(t, err, "old secret must stop working")
	_, err = client.RequestToken(t.Context(), "lifecycle", rotated.Secret, nil)
	require.NoError(t, err)

	// Deleting the client revokes its grants and removes the registration.
	require.NoError(t, admin.DeleteClient(t.Context(), id))
	_, err = admin.GetClient(t.Context(), id)
	requireStatus(t, err, 404)
}

func TestProtectedClientCannotBeDeleted(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)

	clients, err := admin.ListClients(t.Context())
	require.NoError(t, err)

	var adminID string
	for _, c := range clients {
		if c.Name == adminClientName {
			require.True(t, c.Protected)
			adminID = c.ID
		}
	}
	require.NotEmpty(t, adminID, "seeded admin client should exist")

	err = admin.DeleteClient(t.Context(), adminID)
	requireStatus(t, err, 409)
}

func TestScopeLifecycle(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)

	created, err := admin.CreateScope(t.Context(), gatesdk.CreateScopeRequest{
		Name:        "billing:read",
		DisplayName: "Read Billing",
		Default:     true,
	})
	require.NoError(t, err)
	require.True(t, created.Default)

	display := "Billing (read only)"
	err = admin.UpdateScope(t.Context(), "billing:read", gatesdk.UpdateScopeRequest{
		DisplayName: &display,
	})
	require.NoError(t, err)

	scopes, err := admin.ListScopes(t.Context())
	require.NoError(t, err)
	var found bool
	for _, s := range scopes {
		if s.Name == "billing:read" {
			found = true
			require.Equal(t, display, s.DisplayName)
		}
	}
	require.True(t, found)

	// A scope referenced by a client refuses deletion.
	createTestClient(t, admin, "biller",
		[]string{"client_credentials"}, []string{"billing:read"})
	err = admin.DeleteScope(t.Context(), "billing:read")
	requireStatus(t, err, 409)
}

func TestGrantAudit(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	id, secret := createTestClient(t, admin, "audited",
		[]string{"client_credentials", "refresh_token"}, nil)

	client := gatesdk.New(baseURL)
	_, err := client.RequestToken(t.Context(), "audited", secret, nil)
	require.NoError(t, err)

	grants, err := admin.ListClientGrants(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	require.Equal(t, "refresh_token", grants[0].Type)
	require.NotContains(t, grants[0].Key, ".", "stored key is a fingerprint, not the token")

	revoked, err := admin.RevokeClientGrants(t.Context(), id)
	require.NoError(t, err)
	require.EqualValues(t, 1, revoked.Revoked)
}

// TestKeyRotation rotates the signing key over the admin API and checks
// that tokens issued before rotation still verify against the JWKS.
func TestKeyRotation(t *testing.T) {
	baseURL, cleanup := setupContainer(t)
	defer cleanup()

	admin := adminClient(t, baseURL)
	_, secret := createTestClient(t, admin, "rotation-check",
		[]string{"client_credentials"}, nil)

	client := gatesdk.New(baseURL)
	before, err := client.RequestToken(t.Context(), "rotation-check", secret, nil)
	require.NoError(t, err)

	rotated, err := admin.RotateSigningKey(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, rotated.Kid)

	// Pre-rotation token stays valid through the retirement grace window.
	intro, err := client.IntrospectToken(t.Context(), "rotation-check", secret, before.AccessToken)
	require.NoError(t, err)
	require.True(t, intro.Active)

	after, err := client.RequestToken(t.Context(), "rotation-check", secret, nil)
	require.NoError(t, err)
	require.NotEmpty(t, after.AccessToken)
}
