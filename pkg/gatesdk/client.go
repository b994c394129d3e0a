package gatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a typed HTTP client for a gatehouse deployment.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Bearer token attached to admin API calls. Token-endpoint calls carry
	// client credentials instead.
	accessToken string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAccessToken sets the bearer token used for admin endpoints.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// RequestToken performs a client_credentials exchange.
func (c *Client) RequestToken(ctx context.Context, clientID, clientSecret string, scopes []string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}
	return c.postTokenForm(ctx, "/v1/oauth2/token", form)
}

// RefreshToken rotates a refresh token.
func (c *Client) RefreshToken(ctx context.Context, clientID, clientSecret, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"refresh_token": {refreshToken},
	}
	return c.postTokenForm(ctx, "/v1/oauth2/token", form)
}

// RevokeToken revokes a token per RFC 7009. Succeeds for unknown tokens.
func (c *Client) RevokeToken(ctx context.Context, clientID, clientSecret, token string) error {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"token":         {token},
	}
	resp, err := c.postForm(ctx, "/v1/oauth2/revoke", form)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// IntrospectToken queries token state per RFC 7662.
func (c *Client) IntrospectToken(ctx context.Context, clientID, clientSecret, token string) (*IntrospectionResponse, error) {
	form := url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"token":         {token},
	}
	resp, err := c.postForm(ctx, "/v1/oauth2/introspect", form)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out IntrospectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode introspection response: %w", err)
	}
	return &out, nil
}

// JWKS fetches the public signing keys document.
func (c *Client) JWKS(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Livez reports process liveness.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz reports readiness, including database connectivity.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateClient registers a new client through the admin API.
func (c *Client) CreateClient(ctx context.Context, req CreateClientRequest) (*CreateClientResponse, error) {
	var out CreateClientResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/clients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListClients lists all registered clients.
func (c *Client) ListClients(ctx context.Context) ([]ClientInfo, error) {
	var out []ClientInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/clients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetClient fetches one client by id.
func (c *Client) GetClient(ctx context.Context, id string) (*ClientInfo, error) {
	var out ClientInfo
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/clients/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateClient applies a partial update to a client registration.
func (c *Client) UpdateClient(ctx context.Context, id string, req UpdateClientRequest) error {
	return c.doJSON(ctx, http.MethodPatch, "/v1/admin/clients/"+id, req, nil)
}

// RotateClientSecret replaces a client's secret and returns the new one.
func (c *Client) RotateClientSecret(ctx context.Context, id string) (*RotateSecretResponse, error) {
	var out RotateSecretResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/clients/"+id+"/rotate-secret", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteClient removes a client registration.
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/admin/clients/"+id, nil, nil)
}

// ListClientGrants lists the live grants issued to a client.
func (c *Client) ListClientGrants(ctx context.Context, id string) ([]Grant, error) {
	var out []Grant
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/clients/"+id+"/grants", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RevokeClientGrants drops every grant issued to a client.
func (c *Client) RevokeClientGrants(ctx context.Context, id string) (*RevokeGrantsResponse, error) {
	var out RevokeGrantsResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/admin/clients/"+id+"/grants", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateScope adds a scope to the catalogue.
func (c *Client) CreateScope(ctx context.Context, req CreateScopeRequest) (*Scope, error) {
	var out Scope
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/scopes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListScopes lists the scope catalogue.
func (c *Client) ListScopes(ctx context.Context) ([]Scope, error) {
	var out []Scope
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/scopes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateScope applies a partial update to a scope.
func (c *Client) UpdateScope(ctx context.Context, name string, req UpdateScopeRequest) error {
	return c.doJSON(ctx, http.MethodPatch, "/v1/admin/scopes/"+name, req, nil)
}

// DeleteScope removes a scope from the catalogue.
func (c *Client) DeleteScope(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/admin/scopes/"+name, nil, nil)
}

// RotateSigningKey mints a fresh signing key and retires the current ones.
func (c *Client) RotateSigningKey(ctx context.Context) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/keys/rotate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postTokenForm(ctx context.Context, path string, form url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, path, form)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &out, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.httpClient.Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &ErrorResponse{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Description = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
