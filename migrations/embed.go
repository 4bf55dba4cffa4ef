// Package migrations embeds the postgres schema migrations so the binary can
// apply them regardless of working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
