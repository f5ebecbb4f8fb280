package database

import (
	"io/fs"
	"os"
)

// MigrationsFS returns a filesystem rooted at the db/migrations directory.
// The postgres backend applies these at startup; the sqlite backend ships
// its schema compiled in and does not use this.
func MigrationsFS() fs.FS {
	return os.DirFS("db/migrations")
}

// MigrationsPath is the directory within MigrationsFS holding the *.up.sql files.
const MigrationsPath = "."
