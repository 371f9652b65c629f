// Package assets embeds the static data the server ships with: the default
// puzzle catalog and the SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed puzzles.json
var puzzles []byte

//go:embed sql/*.sql
var sqlFS embed.FS

// Puzzles returns the raw JSON of the built-in puzzle catalog.
func Puzzles() []byte {
	return puzzles
}

// Migrations returns the migration scripts rooted at the sql directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(sqlFS, "sql")
	if err != nil {
		// sql/ is embedded at build time; Sub only fails on a malformed path.
		panic(err)
	}
	return sub
}
