package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationManager handles schema migration checks and execution.
type MigrationManager struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

// NewMigrationManager creates a new migration manager.
func NewMigrationManager(db *sql.DB, driver string) *MigrationManager {
	return &MigrationManager{db: db, driver: driver}
}

// MigrationStatus represents the status of migrations.
type MigrationStatus struct {
	UpToDate bool
	Pending  []string
	Current  string
	Total    int
}

// CheckMigrations checks the current migration status.
func (m *MigrationManager) CheckMigrations(ctx context.Context) (*MigrationStatus, error) {
	status := &MigrationStatus{
		Pending: []string{},
	}

	// Ensure schema_migrations exists so applied versions can be recorded
	if err := m.ensureSchemaMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	migrations, err := m.listMigrations()
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	status.Total = len(migrations)
	if len(migrations) == 0 {
		status.UpToDate = true
		return status, nil
	}

	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("current migration version: %w", err)
	}
	status.Current = currentVersion

	for _, migration := range migrations {
		if migration > currentVersion {
			status.Pending = append(status.Pending, migration)
		}
	}

	status.UpToDate = len(status.Pending) == 0
	return status, nil
}

// RunMigrations runs all pending migrations in order.
func (m *MigrationManager) RunMigrations(ctx context.Context, status *MigrationStatus) error {
	if len(status.Pending) == 0 {
		return nil
	}

	sort.Strings(status.Pending)

	for _, migration := range status.Pending {
		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("run migration %s: %w", migration, err)
		}
	}

	return nil
}

// Migrate is a convenience that checks and applies everything pending.
func (m *MigrationManager) Migrate(ctx context.Context) error {
	status, err := m.CheckMigrations(ctx)
	if err != nil {
		return err
	}
	return m.RunMigrations(ctx, status)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if needed.
func (m *MigrationManager) ensureSchemaMigrationsTable(ctx context.Context) error {
	var query string
	switch m.driver {
	case "sqlite", "":
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version TEXT UNIQUE NOT NULL,
				applied_at TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`
	default:
		query = `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT UNIQUE NOT NULL,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
		`
	}
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// listMigrations lists embedded migration files for the active driver.
// A file named NNNN_name_sqlite.sql overrides NNNN_name.sql on sqlite and
// is ignored on postgres.
func (m *MigrationManager) listMigrations() ([]string, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	sqliteMigrations := make(map[string]string)
	regularMigrations := make(map[string]string)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		if strings.HasSuffix(name, "_sqlite.sql") {
			base := strings.TrimSuffix(name, "_sqlite.sql")
			sqliteMigrations[base] = name
		} else {
			base := strings.TrimSuffix(name, ".sql")
			regularMigrations[base] = name
		}
	}

	baseNames := make(map[string]bool)
	for base := range sqliteMigrations {
		baseNames[base] = true
	}
	for base := range regularMigrations {
		baseNames[base] = true
	}

	var migrations []string
	for base := range baseNames {
		if m.driver == "sqlite" {
			if name, ok := sqliteMigrations[base]; ok {
				migrations = append(migrations, name)
			} else if name, ok := regularMigrations[base]; ok {
				migrations = append(migrations, name)
			}
		} else {
			if name, ok := regularMigrations[base]; ok {
				migrations = append(migrations, name)
			}
		}
	}

	sort.Strings(migrations)
	return migrations, nil
}

// getCurrentVersion returns the most recently applied migration version.
func (m *MigrationManager) getCurrentVersion(ctx context.Context) (string, error) {
	var version string
	err := m.db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY id DESC LIMIT 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return version, err
}

// runMigration executes a single embedded migration file and records it.
func (m *MigrationManager) runMigration(ctx context.Context, name string) error {
	data, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}

	insert := "INSERT INTO schema_migrations (version) VALUES (?)"
	if m.driver == "postgres" {
		insert = "INSERT INTO schema_migrations (version) VALUES ($1)"
	}
	if _, err := m.db.ExecContext(ctx, insert, name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return nil
}
