// Package configuration embeds the schema migrations for configuration
// data: clients and scopes.
package configuration

import "embed"

//go:embed *.sql
var FS embed.FS
