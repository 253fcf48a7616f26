// Package migrations holds the SQL schema migrations applied by golang-migrate.
package migrations

import "embed"

// FS contains every *.up.sql and *.down.sql file in this directory
//
//go:embed *.sql
var FS embed.FS
