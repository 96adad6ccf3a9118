// Package migrations embeds the goose SQL migrations for every supported store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the postgres migration directory.
func Postgres() fs.FS { return sub("postgres") }

// SQLite returns the sqlite migration directory.
func SQLite() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// the directories are embedded at build time
		panic(err)
	}
	return f
}
