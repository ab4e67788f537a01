package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psds-microservice/checkin-scanner/internal/config"
	"go.uber.org/zap/zaptest"
)

func TestMigrateSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "scanner.db")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	// database/migrations lives at the repository root.
	chdir(t, filepath.Join(wd, "..", ".."))

	log := zaptest.NewLogger(t)
	if err := MigrateUp("sqlite3://"+dbPath, log); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := MigrateUp("sqlite3://"+dbPath, log); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}

	db, err := Open(config.DriverSQLite, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if !db.Migrator().HasTable("operator_sessions") {
		t.Fatal("operator_sessions not created")
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateMigration(t *testing.T) {
	chdir(t, t.TempDir())
	if err := CreateMigration("add_scan_log"); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join("database", "migrations", "*_add_scan_log.*.sql"))
	if len(matches) != 2 {
		t.Fatalf("files = %v", matches)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
