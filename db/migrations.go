// Package db holds the SQL schema migrations, embedded so binaries and
// integration tests can apply them without a checkout.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
