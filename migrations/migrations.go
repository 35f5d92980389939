// Package migrations embeds the SQL schema.
package migrations

import "embed"

// FS holds the migration files in lexical order of application.
//
//go:embed *.sql
var FS embed.FS
