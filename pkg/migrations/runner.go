// Package migrations runs SQL schema migrations from an embedded or
// on-disk filesystem. Files are named NNNN_description.up.sql and
// NNNN_description.down.sql and applied in version order.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"
)

// Runner executes database migrations.
type Runner struct {
	db  *sql.DB
	src fs.FS
}

// NewRunner creates a migration runner over a filesystem of .sql files.
func NewRunner(db *sql.DB, src fs.FS) *Runner {
	return &Runner{db: db, src: src}
}

// Record represents a row of the schema_migrations table.
type Record struct {
	Version   string
	AppliedAt time.Time
}

// EnsureMigrationTable creates the schema_migrations table if needed.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Applied returns all applied migration versions in order.
func (r *Runner) Applied(ctx context.Context) ([]Record, error) {
	query := `SELECT version, applied_at FROM schema_migrations ORDER BY version`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Version, &rec.AppliedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pending returns the versions that have not been applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	available, err := r.scanVersions()
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	var pending []string
	for _, v := range available {
		if !appliedSet[v] {
			pending = append(pending, v)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

// Up runs all pending migrations.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.EnsureMigrationTable(ctx); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}

	for _, version := range pending {
		if err := r.run(ctx, version, "up"); err != nil {
			return fmt.Errorf("migration %s: %w", version, err)
		}
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", version, err)
		}
	}
	return nil
}

// Down rolls back the last applied migration.
func (r *Runner) Down(ctx context.Context) error {
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}

	last := applied[len(applied)-1]
	if err := r.run(ctx, last.Version, "down"); err != nil {
		return fmt.Errorf("rollback %s: %w", last.Version, err)
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM schema_migrations WHERE version = $1`, last.Version); err != nil {
		return fmt.Errorf("remove migration record %s: %w", last.Version, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, version, direction string) error {
	name, err := r.findFile(version, direction)
	if err != nil {
		return err
	}

	content, err := fs.ReadFile(r.src, name)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Runner) findFile(version, direction string) (string, error) {
	suffix := "." + direction + ".sql"
	entries, err := fs.ReadDir(r.src, ".")
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, version+"_") && strings.HasSuffix(name, suffix) {
			return name, nil
		}
	}
	return "", fmt.Errorf("migration file %s%s not found", version, suffix)
}

// scanVersions lists the distinct versions present in the source filesystem.
func (r *Runner) scanVersions() ([]string, error) {
	entries, err := fs.ReadDir(r.src, ".")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var versions []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok || seen[version] {
			continue
		}
		seen[version] = true
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}
