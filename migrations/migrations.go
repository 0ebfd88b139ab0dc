package migrations

import (
	"embed"
	"io/fs"
)

//go:embed schema/sqlite/*.sql schema/postgres/*.sql
var schemaFS embed.FS

// Sqlite returns the embedded sqlite schema. The scripts are idempotent
// and applied in full at every start.
func Sqlite() fs.FS {
	return sub("schema/sqlite")
}

// Postgres returns the goose migrations for the postgres store.
func Postgres() fs.FS {
	return sub("schema/postgres")
}

func sub(dir string) fs.FS {
	fsys, err := fs.Sub(schemaFS, dir)
	if err != nil {
		panic(err) // should never happen since we control the embed path
	}
	return fsys
}
