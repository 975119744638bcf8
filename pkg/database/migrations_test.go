package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestMigrationManager_AppliesFullSchema(t *testing.T) {
	db := openTestDB(t)

	if err := NewMigrationManager(db).ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	if err := NewSchemaValidator(db).ValidateTablesExist(); err != nil {
		t.Errorf("Schema validation failed after migrations: %v", err)
	}
}

func TestMigrationManager_Idempotent(t *testing.T) {
	db := openTestDB(t)

	manager := NewMigrationManager(db)
	if err := manager.ApplyMigrations(); err != nil {
		t.Fatalf("First ApplyMigrations failed: %v", err)
	}
	if err := manager.ApplyMigrations(); err != nil {
		t.Fatalf("Second ApplyMigrations must be a no-op, got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("Expected %d recorded migrations, got %d", len(migrations), count)
	}
}

func TestSchemaValidator_DetectsMissingTables(t *testing.T) {
	db := openTestDB(t)

	if err := NewSchemaValidator(db).ValidateTablesExist(); err == nil {
		t.Error("Validation must fail on an empty database")
	}
}

func TestApplyPragmas(t *testing.T) {
	db := openTestDB(t)

	if err := ApplyPragmas(db); err != nil {
		t.Fatalf("ApplyPragmas failed: %v", err)
	}

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("Failed to read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Error("Expected foreign keys enforcement to be on")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := &Config{
		DatabasePath:    "./test.db",
		MaxConnections:  5,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.DatabasePath = "" }},
		{"zero connections", func(c *Config) { c.MaxConnections = 0 }},
		{"zero lifetime", func(c *Config) { c.ConnMaxLifetime = 0 }},
		{"zero idle time", func(c *Config) { c.ConnMaxIdleTime = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := *valid
			tc.mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation failure")
			}
		})
	}
}
