package database

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// migrations is the ordered schema history. Versions are applied once and
// recorded in schema_migrations; adding a migration means appending here.
var migrations = []Migration{
	{
		Version:     "001",
		Description: "users, channels, memberships",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id           TEXT PRIMARY KEY,
				display_name TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL DEFAULT 'offline'
			);
			CREATE TABLE IF NOT EXISTS channels (
				id   TEXT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT ''
			);
			CREATE TABLE IF NOT EXISTS channel_members (
				channel_id TEXT NOT NULL REFERENCES channels(id),
				user_id    TEXT NOT NULL REFERENCES users(id),
				PRIMARY KEY (channel_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_members_user ON channel_members(user_id);
		`,
	},
	{
		Version:     "002",
		Description: "messages with nullable parent for thread replies",
		SQL: `
			CREATE TABLE IF NOT EXISTS messages (
				id         TEXT PRIMARY KEY,
				channel_id TEXT NOT NULL REFERENCES channels(id),
				author_id  TEXT NOT NULL REFERENCES users(id),
				parent_id  TEXT REFERENCES messages(id),
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_messages_parent ON messages(parent_id);
		`,
	},
}

// MigrationManager applies the in-code migration set to a database.
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a migration manager for an open database.
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// ApplyMigrations applies all pending migrations in version order. Each
// migration runs inside its own transaction together with its version
// record, so a failed migration leaves no partial state.
func (m *MigrationManager) ApplyMigrations() error {
	if err := m.createMigrationTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	applied, err := m.appliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, migration := range ordered {
		if applied[migration.Version] {
			continue
		}
		if err := m.apply(migration); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

func (m *MigrationManager) createMigrationTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (m *MigrationManager) appliedVersions() (map[string]bool, error) {
	rows, err := m.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *MigrationManager) apply(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migration.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
		migration.Version, migration.Description,
	); err != nil {
		return err
	}
	return tx.Commit()
}
