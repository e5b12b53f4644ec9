package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"almpartners/dbdeploy/internal/backend"
)

const revisionTable = "schema_revision"

// FileEngine applies migrations stored as paired SQL files in a single
// directory: <revision>_<name>.up.sql and <revision>_<name>.down.sql.
// Revisions are ordered lexically, so zero-padded numeric prefixes
// (0001, 0002, ...) apply in sequence. The applied revision is tracked in
// a schema_revision table inside the target database.
type FileEngine struct {
	q   backend.Querier
	dir string
}

// NewFileEngine returns a FileEngine reading migrations from dir and
// executing them through q.
func NewFileEngine(q backend.Querier, dir string) *FileEngine {
	return &FileEngine{q: q, dir: dir}
}

type migrationFile struct {
	revision string
	upPath   string
	downPath string
}

func (e *FileEngine) load() ([]migrationFile, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("migration: failed to read %s: %w", e.dir, err)
	}

	byRevision := map[string]*migrationFile{}
	for _, entry := range entries {
		name := entry.Name()
		var revision string
		var up bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			revision = strings.TrimSuffix(name, ".up.sql")
			up = true
		case strings.HasSuffix(name, ".down.sql"):
			revision = strings.TrimSuffix(name, ".down.sql")
		default:
			continue
		}

		m := byRevision[revision]
		if m == nil {
			m = &migrationFile{revision: revision}
			byRevision[revision] = m
		}
		if up {
			m.upPath = filepath.Join(e.dir, name)
		} else {
			m.downPath = filepath.Join(e.dir, name)
		}
	}

	migrations := make([]migrationFile, 0, len(byRevision))
	for _, m := range byRevision {
		if m.upPath == "" {
			return nil, fmt.Errorf("migration: revision %s has no up file", m.revision)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].revision < migrations[j].revision
	})
	return migrations, nil
}

func (e *FileEngine) ensureRevisionTable(ctx context.Context) error {
	_, err := e.q.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (revision TEXT NOT NULL)`, revisionTable))
	if err != nil {
		return fmt.Errorf("migration: failed to create revision table: %w", err)
	}
	return nil
}

// CurrentRevision returns the applied revision, or "" at base.
func (e *FileEngine) CurrentRevision(ctx context.Context) (string, error) {
	if err := e.ensureRevisionTable(ctx); err != nil {
		return "", err
	}

	rows, err := e.q.QueryContext(ctx, fmt.Sprintf(`SELECT revision FROM %s`, revisionTable))
	if err != nil {
		return "", fmt.Errorf("migration: failed to read revision: %w", err)
	}
	defer rows.Close()

	var revision string
	if rows.Next() {
		if err := rows.Scan(&revision); err != nil {
			return "", fmt.Errorf("migration: failed to scan revision: %w", err)
		}
	}
	return revision, rows.Err()
}

func (e *FileEngine) setRevision(ctx context.Context, revision string) error {
	if _, err := e.q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, revisionTable)); err != nil {
		return fmt.Errorf("migration: failed to clear revision: %w", err)
	}
	if revision == "" {
		return nil
	}
	if _, err := e.q.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (revision) VALUES (?)`, revisionTable), revision); err != nil {
		return fmt.Errorf("migration: failed to record revision: %w", err)
	}
	return nil
}

// UpgradeToHead applies every migration beyond the current revision.
func (e *FileEngine) UpgradeToHead(ctx context.Context) error {
	migrations, err := e.load()
	if err != nil {
		return err
	}
	current, err := e.CurrentRevision(ctx)
	if err != nil {
		return err
	}

	b := backend.NewSQLite(e.q)
	for _, m := range migrations {
		if m.revision <= current {
			continue
		}
		if err := b.ExecScript(ctx, m.upPath); err != nil {
			return fmt.Errorf("migration: up %s: %w", m.revision, err)
		}
		if err := e.setRevision(ctx, m.revision); err != nil {
			return err
		}
	}
	return nil
}

// DowngradeToBase applies down-migrations in reverse order until the
// database is back at base. Revisions without a down file are an error,
// since they cannot be unwound.
func (e *FileEngine) DowngradeToBase(ctx context.Context) error {
	migrations, err := e.load()
	if err != nil {
		return err
	}
	current, err := e.CurrentRevision(ctx)
	if err != nil {
		return err
	}
	if current == "" {
		return nil
	}

	b := backend.NewSQLite(e.q)
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.revision > current {
			continue
		}
		if m.downPath == "" {
			return fmt.Errorf("migration: revision %s has no down file", m.revision)
		}
		if err := b.ExecScript(ctx, m.downPath); err != nil {
			return fmt.Errorf("migration: down %s: %w", m.revision, err)
		}
		previous := ""
		if i > 0 {
			previous = migrations[i-1].revision
		}
		if err := e.setRevision(ctx, previous); err != nil {
			return err
		}
	}
	return nil
}
