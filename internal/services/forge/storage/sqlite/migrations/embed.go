// Package migrations embeds the SQL schema for the forge SQLite store.
package migrations

import "embed"

// FS holds the forward-only migration scripts, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
