// Package migrations embeds the shop schema migrations.
package migrations

import "embed"

//go:embed *.up.sql
var FS embed.FS
