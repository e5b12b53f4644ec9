// Package gitversion reads and writes the version marker table inside the
// target database. The marker records which repository version the deployed
// schema corresponds to; the upgrade command gates on it.
package gitversion

import (
	"context"
	"fmt"

	"almpartners/dbdeploy/internal/backend"
)

// Version is the deployed-version marker.
type Version struct {
	// Repository is the remote repository URL, when configured.
	Repository string

	// Branch is the branch the deployment was built from.
	Branch string

	// Tag is the version tag (e.g. "v3.1.0"). Empty when the database
	// has never been stamped.
	Tag string
}

// Repository persists the single-row version marker in the named table.
type Repository struct {
	q     backend.Querier
	table string
}

// NewRepository returns a Repository writing to table through q.
func NewRepository(q backend.Querier, table string) *Repository {
	if table == "" {
		table = "git_version"
	}
	return &Repository{q: q, table: table}
}

func (r *Repository) ensureTable(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            repository TEXT NOT NULL DEFAULT '',
            branch     TEXT NOT NULL DEFAULT '',
            tag        TEXT NOT NULL DEFAULT ''
        )`, r.table))
	if err != nil {
		return fmt.Errorf("gitversion: failed to create table %s: %w", r.table, err)
	}
	return nil
}

// Get returns the stored version marker. A database without a marker
// returns the zero Version, not an error: an absent version reads as
// "older than anything".
func (r *Repository) Get(ctx context.Context) (Version, error) {
	b := backend.NewSQLite(r.q)
	exists, err := b.ObjectExists(ctx, "", r.table, "table")
	if err != nil {
		return Version{}, fmt.Errorf("gitversion: %w", err)
	}
	if !exists {
		return Version{}, nil
	}

	rows, err := r.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT repository, branch, tag FROM %s`, r.table))
	if err != nil {
		return Version{}, fmt.Errorf("gitversion: failed to read %s: %w", r.table, err)
	}
	defer rows.Close()

	var v Version
	if rows.Next() {
		if err := rows.Scan(&v.Repository, &v.Branch, &v.Tag); err != nil {
			return Version{}, fmt.Errorf("gitversion: failed to scan %s: %w", r.table, err)
		}
	}
	return v, rows.Err()
}

// Set replaces the version marker.
func (r *Repository) Set(ctx context.Context, v Version) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, r.table)); err != nil {
		return fmt.Errorf("gitversion: failed to clear %s: %w", r.table, err)
	}
	_, err := r.q.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (repository, branch, tag) VALUES (?, ?, ?)`, r.table),
		v.Repository, v.Branch, v.Tag)
	if err != nil {
		return fmt.Errorf("gitversion: failed to write %s: %w", r.table, err)
	}
	return nil
}
