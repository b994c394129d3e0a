package domain

// SeedScope declares a scope that should exist in a fresh deployment.
type SeedScope struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// SeedClient declares a client that should exist in a fresh deployment.
// Secret is the plaintext credential; it is hashed before it touches the
// store and never persisted as given.
type SeedClient struct {
	Name              string   `json:"name"`
	Secret            string   `json:"secret"`
	AllowedGrantTypes []string `json:"allowed_grant_types"`
	Scopes            []string `json:"scopes"`
}

// SeedData is the full initial configuration. Each section is applied only
// when its table is empty, so a populated deployment is never overwritten.
type SeedData struct {
	Scopes  []SeedScope  `json:"scopes"`
	Clients []SeedClient `json:"clients"`
}
