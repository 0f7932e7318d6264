// Package migrations embeds the goose schema migrations for each supported
// SQL dialect.
package migrations

import "embed"

//go:embed mysql/*.sql postgres/*.sql
var FS embed.FS
