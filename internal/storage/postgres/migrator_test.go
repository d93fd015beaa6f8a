package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestCheckMigrationPairs_Embedded(t *testing.T) {
	t.Parallel()

	count, err := checkMigrationPairs(migrationsFS, migrationsDir)
	if err != nil {
		t.Fatalf("embedded migrations are inconsistent: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 migration versions, got %d", count)
	}
}

func TestCheckMigrationPairs_MissingDown(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql": {
			Data: []byte("CREATE TABLE test_a (id INT);"),
		},
	}

	_, err := checkMigrationPairs(fsys, "sql/migrations")
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "must have both up and down") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckMigrationPairs_InvalidName(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/init.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := checkMigrationPairs(fsys, "sql/migrations")
	if err == nil {
		t.Fatal("expected error for invalid migration filename")
	}
}
