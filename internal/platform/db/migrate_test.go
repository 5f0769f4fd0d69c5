package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMigrations_SortsAndSkips(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"002_reference_seed.sql": "INSERT INTO lab_parameters VALUES (1);",
		"001_core.sql":           "CREATE TABLE patients (id UUID PRIMARY KEY);",
		"notes.txt":              "not a migration",
		"README.sql":             "no numeric prefix",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "001_core.sql" {
		t.Errorf("first migration = %d %s, want 1 001_core.sql", migrations[0].Version, migrations[0].Name)
	}
	if migrations[1].Version != 2 {
		t.Errorf("second migration version = %d, want 2", migrations[1].Version)
	}
	if migrations[0].SQL == "" {
		t.Error("migration SQL should be loaded")
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, "/nonexistent/migrations")
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx for empty context")
	}
}

func TestTxFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil tx for wrong value type")
	}
}
