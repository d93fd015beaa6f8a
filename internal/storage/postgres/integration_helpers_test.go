package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testDSNEnv указывает на базу, которую интеграционные тесты могут очищать.
const testDSNEnv = "CUSTOMERS_POSTGRES_TEST_DSN"

// newTestStore открывает хранилище, применяет миграции и очищает данные.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := newRawTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, store.MigrateUp(ctx, 0))
	resetTables(ctx, t, store)
	return store
}

// newRawTestStore открывает хранилище без миграций.
func newRawTestStore(t *testing.T) *Store {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres integration tests skipped in -short mode")
	}
	dsn := strings.TrimSpace(os.Getenv(testDSNEnv))
	if dsn == "" {
		t.Skipf("%s is not set", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres is not reachable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// resetTables очищает все таблицы схемы, кроме служебной таблицы migrate.
func resetTables(ctx context.Context, t *testing.T, store *Store) {
	t.Helper()

	rows, err := store.DB().QueryContext(ctx, `
		SELECT quote_ident(tablename)
		FROM pg_tables
		WHERE schemaname = current_schema() AND tablename <> 'schema_migrations'
	`)
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	if len(tables) == 0 {
		return
	}

	_, err = store.DB().ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}
