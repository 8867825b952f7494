package migrations

import "embed"

// Migrations holds the versioned schema files applied at startup.
//
//go:embed *.sql
var Migrations embed.FS
