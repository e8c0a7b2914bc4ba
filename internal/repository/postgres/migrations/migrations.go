// Package migrations embeds the SQL schema for the inventory database.
package migrations

import "embed"

// FS holds the golang-migrate compatible migration files.
//
//go:embed *.sql
var FS embed.FS
