package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// RunSQLiteMigrations applies every embedded SQLite migration in filename
// order. Statements use IF NOT EXISTS so a rerun on an up-to-date database
// is a no-op.
func RunSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	files, err := fs.Glob(sqliteFS, "sqlite/*.up.sql")
	if err != nil {
		return fmt.Errorf("list sqlite migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		script, err := sqliteFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
