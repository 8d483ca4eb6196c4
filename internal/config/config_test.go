package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AUDIT_EXTRACTION_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"AUDIT_ENVIRONMENT", "APP_ENV", "NODE_ENV",
		"AUDIT_SERVER_PORT", "PORT", "AUDIT_RECONCILE_GROSSNET_CRITICAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Server.BodyLimitMB)
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.Storage.UploadDir)
	assert.Equal(t, time.Hour, cfg.Storage.UploadTTL)
	assert.Equal(t, "gemini-1.5-flash", cfg.Extraction.Model)
	assert.Equal(t, 10, cfg.Extraction.BatchSize)
	assert.Equal(t, 80*time.Second, cfg.Extraction.BatchDelay)
	assert.Equal(t, 100, cfg.Extraction.MaxPages)
	assert.True(t, cfg.Reconcile.GrossNetCritical)
	assert.False(t, cfg.HasVisionModel())
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")

	content := `
environment: production
server:
  port: 9090
extraction:
  batch_size: 4
  batch_delay: 5s
ledger:
  column_map_file: /etc/columns.yaml
reconcile:
  grossnet_critical: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Extraction.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Extraction.BatchDelay)
	assert.Equal(t, "/etc/columns.yaml", cfg.Ledger.ColumnMapFile)
	assert.False(t, cfg.Reconcile.GrossNetCritical)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("AUDIT_SERVER_PORT", "7000")
	t.Setenv("NODE_ENV", "production")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Extraction.APIKey)
	assert.True(t, cfg.HasVisionModel())
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_PlatformPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  batch_size: 0\n"), 0644))

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}
