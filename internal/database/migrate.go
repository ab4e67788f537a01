package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ensureDatabase checks if the target database exists and creates it if necessary.
// It connects to the "postgres" maintenance database using the same host/user/password
// taken from databaseURL.
func ensureDatabase(databaseURL string, log *zap.Logger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name is empty in url")
	}

	// Connect to the maintenance database "postgres" instead of the target DB.
	u.Path = "/postgres"
	adminURL := u.String()

	db, err := sql.Open("postgres", adminURL)
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping admin connection: %w", err)
	}

	var exists bool
	if err := db.QueryRow("SELECT true FROM pg_database WHERE datname = $1", dbName).Scan(&exists); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		return nil
	}

	_, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	if err != nil {
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	log.Info("database created", zap.String("database", dbName))
	return nil
}

// ensureSQLiteDir creates the directory of a sqlite3:// database file.
func ensureSQLiteDir(databaseURL string) error {
	path := strings.TrimPrefix(databaseURL, "sqlite3://")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// migrationsDir looks for database/migrations in cwd or its parent (when run from bin/).
func migrationsDir() (string, bool) {
	cwd, _ := os.Getwd()
	dirs := []string{
		filepath.Join(cwd, "database", "migrations"),
		filepath.Join(cwd, "..", "database", "migrations"),
	}
	for _, d := range dirs {
		if _, err := os.Stat(d); err == nil {
			abs, _ := filepath.Abs(d)
			return abs, true
		}
	}
	return dirs[0], false
}

// MigrateUp runs all pending SQL migrations from database/migrations (golang-migrate).
// A missing PostgreSQL database is created first.
func MigrateUp(databaseURL string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"):
		if err := ensureDatabase(databaseURL, log); err != nil {
			return fmt.Errorf("ensure database: %w", err)
		}
	case strings.HasPrefix(databaseURL, "sqlite3://"):
		if err := ensureSQLiteDir(databaseURL); err != nil {
			return fmt.Errorf("ensure sqlite dir: %w", err)
		}
	}

	absDir, ok := migrationsDir()
	if !ok {
		return fmt.Errorf("migrations dir not found (tried cwd and parent)")
	}
	return migrateFrom("file://"+filepath.ToSlash(absDir), databaseURL, log)
}

func migrateFrom(sourceURL, databaseURL string, log *zap.Logger) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate new: %w", err)
	}
	defer m.Close()
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("migrate: no pending migrations")
	case err != nil:
		return err
	default:
		log.Info("migrate: up ok")
	}
	return nil
}

// CreateMigration creates a pair of migration files in database/migrations (timestamp_name.up.sql, .down.sql).
func CreateMigration(name string) error {
	absDir, _ := migrationsDir()
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return err
	}
	base := fmt.Sprintf("%d_%s", time.Now().Unix(), name)
	upPath := filepath.Join(absDir, base+".up.sql")
	downPath := filepath.Join(absDir, base+".down.sql")
	if err := os.WriteFile(upPath, []byte("-- migration up: "+name+"\n"), 0644); err != nil {
		return err
	}
	return os.WriteFile(downPath, []byte("-- migration down: "+name+"\n"), 0644)
}
