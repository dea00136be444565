// Package migrations embeds the goose SQL migrations for the schema this
// core owns: catalog items, carts, cart lines, orders, and order lines.
package migrations

import "embed"

//go:embed *.sql
var MigrationsFS embed.FS
