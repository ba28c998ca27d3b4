package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationsTable tracks which client state migrations ran and what they contained
const migrationsTable = "storefront_schema_migrations"

// ErrMigrationChanged is returned when an applied migration file was edited afterwards
var ErrMigrationChanged = errors.New("applied migration has been modified")

type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// MigrationState pairs a migration with what the tracking table knows about it
type MigrationState struct {
	Migration
	Applied   bool
	AppliedAt time.Time
	Changed   bool
}

type appliedMigration struct {
	checksum  string
	appliedAt time.Time
}

type Migrator struct {
	db    *sql.DB
	files fs.FS
	now   func() time.Time
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, files: migrationFiles, now: time.Now}
}

func (m *Migrator) createTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			checksum CHAR(64) NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (m *Migrator) applied(ctx context.Context) (map[int]appliedMigration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum, applied_at FROM "+migrationsTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]appliedMigration)
	for rows.Next() {
		var (
			version int
			record  appliedMigration
		)
		if err := rows.Scan(&version, &record.checksum, &record.appliedAt); err != nil {
			return nil, err
		}
		applied[version] = record
	}
	return applied, rows.Err()
}

// LoadMigrations reads the embedded NNN_name.sql files in version order
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}

		prefix, name, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".sql"), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || name == "" || err != nil || version <= 0 {
			return nil, fmt.Errorf("migration file %s is not named NNN_description.sql", entry.Name())
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, entry.Name(), version)
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(m.files, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(content)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// RunMigrations applies every pending migration, each in its own transaction,
// and returns the ones it applied. It refuses to run when an applied file changed.
func (m *Migrator) RunMigrations(ctx context.Context) ([]Migration, error) {
	states, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	for _, state := range states {
		if state.Changed {
			return nil, fmt.Errorf("%w: %03d_%s", ErrMigrationChanged, state.Version, state.Name)
		}
	}

	var ran []Migration
	for _, state := range states {
		if state.Applied {
			continue
		}
		if err := m.apply(ctx, state.Migration); err != nil {
			return ran, err
		}
		ran = append(ran, state.Migration)
	}
	return ran, nil
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction for migration %d: %w", migration.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO "+migrationsTable+" (version, name, checksum, applied_at) VALUES ($1, $2, $3, $4)",
		migration.Version, migration.Name, migration.Checksum, m.now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
	}
	return nil
}

// Status returns every embedded migration with its applied time and whether
// the file still matches what was applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationState, error) {
	if err := m.createTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	states := make([]MigrationState, 0, len(migrations))
	for _, migration := range migrations {
		state := MigrationState{Migration: migration}
		if record, ok := applied[migration.Version]; ok {
			state.Applied = true
			state.AppliedAt = record.appliedAt
			state.Changed = record.checksum != migration.Checksum
		}
		states = append(states, state)
	}
	return states, nil
}
