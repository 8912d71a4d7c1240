package migrations

import "embed"

// Files holds the SQL migrations for the delegated session store.
//
//go:embed *.sql
var Files embed.FS
