// Package operational embeds the schema migrations for operational data:
// grants and signing keys.
package operational

import "embed"

//go:embed *.sql
var FS embed.FS
