// Package migration defines the schema-migration collaborator consumed by
// the deploy and downgrade actions, and a file-based SQLite implementation.
package migration

import "context"

// Engine applies structured schema migrations.
type Engine interface {
	// UpgradeToHead applies every pending up-migration in order.
	UpgradeToHead(ctx context.Context) error

	// DowngradeToBase applies down-migrations in reverse until none remain.
	DowngradeToBase(ctx context.Context) error

	// CurrentRevision returns the applied revision identifier, or the
	// empty string when the database is at base.
	CurrentRevision(ctx context.Context) (string, error)
}
