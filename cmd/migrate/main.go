package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dwolla-gateway/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schemaMigrationsDDL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT NOW()
	);`

// migration is one file under migrations/, named by its version. The file
// holds a "-- +migrate Up" section and a "-- +migrate Down" section.
type migration struct {
	Version string
	Up      string
	Down    string
}

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("APP_ENV"))
	defer logger.Sync()

	mode := flag.String("mode", "up", "migration mode: up, down or status")
	dir := flag.String("dir", "./migrations", "directory holding *.sql migrations")
	flag.Parse()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		logger.L().Fatal("DB_URL not set in environment")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.L().Fatal("failed to connect db", zap.Error(err))
	}
	defer db.Close()

	if err := run(db, *mode, *dir); err != nil {
		logger.L().Fatal("migration failed", zap.String("mode", *mode), zap.Error(err))
	}
}

func run(db *sql.DB, mode, dir string) error {
	if _, err := db.Exec(schemaMigrationsDDL); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	migrations, err := loadMigrations(dir)
	if err != nil {
		return err
	}

	switch mode {
	case "up":
		n, err := migrateUp(db, migrations)
		logger.L().Info("migrations applied", zap.Int("count", n))
		return err
	case "down":
		return migrateDown(db, migrations)
	case "status":
		pending, err := pendingMigrations(db, migrations)
		if err != nil {
			return err
		}
		logger.L().Info("migration status",
			zap.Int("known", len(migrations)),
			zap.Strings("pending", pending),
		)
		return nil
	default:
		return fmt.Errorf("unknown mode: %s (use up, down or status)", mode)
	}
}

// loadMigrations reads every *.sql file in dir, ordered by file name.
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)

	out := make([]migration, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		up, down := splitMigration(string(content))
		out = append(out, migration{Version: filepath.Base(f), Up: up, Down: down})
	}
	return out, nil
}

// splitMigration returns the Up and Down sections of a migration file.
// Lines before the first marker are ignored.
func splitMigration(content string) (up, down string) {
	var (
		b       strings.Builder
		current *string
	)
	flush := func() {
		if current != nil {
			*current = b.String()
		}
		b.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if marker, ok := strings.CutPrefix(strings.TrimSpace(line), "-- +migrate "); ok {
			flush()
			switch strings.TrimSpace(marker) {
			case "Up":
				current = &up
			case "Down":
				current = &down
			default:
				current = nil
			}
			continue
		}
		if current != nil {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	flush()
	return up, down
}

func appliedVersions(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func pendingMigrations(db *sql.DB, migrations []migration) ([]string, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m.Version)
		}
	}
	return pending, nil
}

// migrateUp applies pending migrations in order. Each one runs in its own
// transaction together with its schema_migrations row.
func migrateUp(db *sql.DB, migrations []migration) (int, error) {
	applied, err := appliedVersions(db)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range migrations {
		if applied[m.Version] {
			logger.L().Debug("skipping applied migration", zap.String("version", m.Version))
			continue
		}

		logger.L().Info("applying migration", zap.String("version", m.Version))
		err := inTx(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return n, fmt.Errorf("migration failed (%s): %w", m.Version, err)
		}
		n++
	}
	return n, nil
}

// migrateDown rolls back the most recently applied migration.
func migrateDown(db *sql.DB, migrations []migration) error {
	var last string
	err := db.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		logger.L().Info("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get last applied migration: %w", err)
	}

	var target *migration
	for i := range migrations {
		if migrations[i].Version == last {
			target = &migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration file not found for version: %s", last)
	}

	logger.L().Info("rolling back migration", zap.String("version", last))
	err = inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(target.Down); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM schema_migrations WHERE version = $1`, last)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback failed (%s): %w", last, err)
	}
	return nil
}

func inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
