package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

// RunPostgresMigrations applies every embedded PostgreSQL migration in
// filename order. Statements use IF NOT EXISTS so a rerun on an up-to-date
// database is a no-op.
func RunPostgresMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := fs.Glob(postgresFS, "postgres/*.up.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		script, err := postgresFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
