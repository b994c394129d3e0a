package gatehouse_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ferryhill/gatehouse/pkg/gatesdk"
)

/*
 * Shared container setup for gatehouse end-to-end tests. The Docker image
 * is built once in TestMain and each test starts its own container so
 * database state never leaks between tests.
 */

const (
	testImageName = "gatehouse-test:latest"

	adminClientName = "gatehouse-admin"
	adminSecret     = "e2e-admin-secret-12345"
)

var adminScopes = []string{"admin:clients", "admin:scopes", "admin:keys"}

func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building gatehouse Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up gatehouse Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gatehouse/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// baseEnv is the container configuration shared by all tests. Rate limits
// are raised so rapid test traffic never trips the production budgets;
// TestRateLimiting overrides this.
func baseEnv() map[string]string {
	return map[string]string{
		"GATEHOUSE_ISSUER":           "gatehouse-e2e",
		"GATEHOUSE_DATABASE_FILE":    "/home/gatehouse/gatehouse.db",
		"GATEHOUSE_PEPPER_FILE":      "/home/gatehouse/pepper",
		"GATEHOUSE_ADMIN_SECRET":     adminSecret,
		"GATEHOUSE_ALGORITHM":        "EdDSA",
		"GATEHOUSE_KEY_STORAGE_MODE": "persistent",
		"GATEHOUSE_ENV":              "test",
		"GATEHOUSE_LOG_LEVEL":        "info",
		"GATEHOUSE_LOG_FORMAT":       "json",

		"RATELIMIT_STRICT_RPS":     "1000",
		"RATELIMIT_STRICT_BURST":   "1000",
		"RATELIMIT_MODERATE_RPS":   "1000",
		"RATELIMIT_MODERATE_BURST": "1000",
		"RATELIMIT_LENIENT_RPS":    "1000",
		"RATELIMIT_LENIENT_BURST":  "1000",
	}
}

func setupContainer(t *testing.T) (string, func()) {
	t.Helper()
	return setupContainerWithEnv(t, baseEnv())
}

func setupContainerWithEnv(t *testing.T, env map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return baseURL, cleanup
}

// adminClient returns an SDK client authenticated as the seeded admin.
func adminClient(t *testing.T, baseURL string) *gatesdk.Client {
	t.Helper()

	client := gatesdk.New(baseURL)
	resp, err := client.RequestToken(t.Context(), adminClientName, adminSecret, adminScopes)
	require.NoError(t, err, "seeded admin should authenticate")
	require.NotEmpty(t, resp.AccessToken)

	client.SetAccessToken(resp.AccessToken)
	return client
}

// createTestClient registers a fresh client via the admin API.
func createTestClient(t *testing.T, admin *gatesdk.Client, name string, grantTypes, scopes []string) (id, secret string) {
	t.Helper()

	resp, err := admin.CreateClient(t.Context(), gatesdk.CreateClientRequest{
		Name:              name,
		AllowedGrantTypes: grantTypes,
		Scopes:            scopes,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Secret, "secret is only returned on creation")
	return resp.Client.ID, resp.Secret
}

// requireStatus asserts an SDK call failed with the given HTTP status.
func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var apiErr *gatesdk.ErrorResponse
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.Status)
}

func assertTokenResponse(t *testing.T, resp *gatesdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Positive(t, resp.ExpiresIn)
}
