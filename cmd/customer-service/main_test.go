package main

import (
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	setupLogger("debug")
	require.Equal(t, log.DebugLevel, log.GetLevel())

	setupLogger("nonsense")
	require.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CUSTOMERS_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("CUSTOMERS_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("CUSTOMERS_TEST_DOTENV"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "loaded", os.Getenv("CUSTOMERS_TEST_DOTENV"))

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}
