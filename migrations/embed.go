// Package migrations embeds the numbered SQL schema files applied at
// startup.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS

// Dir is the directory passed to the migration runner.
const Dir = "."
