package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c1fapp/internal/common"
	"c1fapp/internal/feed"
	"c1fapp/internal/mapping"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultEntitiesLimit, ClampLimit(0))
	assert.Equal(t, DefaultEntitiesLimit, ClampLimit(-1))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxEntitiesLimit, ClampLimit(MaxEntitiesLimit))
	assert.Equal(t, MaxEntitiesLimit, ClampLimit(MaxEntitiesLimit+1))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("C1FAPP_ENV", "test")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.GRPCAddr)
	assert.Equal(t, DefaultEntitiesLimit, cfg.EntitiesLimit)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, feed.DefaultAPIURL, cfg.Feed.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, feed.DefaultNoDataSentinels, cfg.Feed.NoDataSentinels)
	assert.Equal(t, mapping.DefaultConfidenceTable(), cfg.Confidence)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("C1FAPP_ENV", "test")
	t.Setenv("CTR_ENTITIES_LIMIT", "5000")
	t.Setenv("C1FAPP_WORKERS", "8")
	t.Setenv("C1FAPP_FEED_TIMEOUT", "5s")
	t.Setenv("C1FAPP_NO_DATA_SENTINELS", "nothing here, empty ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxEntitiesLimit, cfg.EntitiesLimit)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, []string{"nothing here", "empty"}, cfg.Feed.NoDataSentinels)
}

func TestLoad_DevelopmentReadsDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("C1FAPP_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("C1FAPP_ENV", "development")
	t.Setenv("C1FAPP_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("C1FAPP_LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_NonDevelopmentIgnoresDotEnv(t *testing.T) {
	chdir(t, t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("C1FAPP_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("C1FAPP_ENV", "production")
	t.Setenv("C1FAPP_LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("C1FAPP_LOG_LEVEL"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_InvalidWorkers(t *testing.T) {
	t.Setenv("C1FAPP_ENV", "test")
	t.Setenv("C1FAPP_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadConfidenceTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`ranges:
  - {min: 0, max: 50, level: Low}
  - {min: 50, max: 101, level: High}
`), 0o600))

		table, err := LoadConfidenceTable(path)
		require.NoError(t, err)
		assert.Equal(t, []mapping.ConfidenceRange{
			{Min: 0, Max: 50, Level: common.ConfidenceLow},
			{Min: 50, Max: 101, Level: common.ConfidenceHigh},
		}, table)
	})

	t.Run("gap is rejected", func(t *testing.T) {
		path := filepath.Join(dir, "gap.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`ranges:
  - {min: 0, max: 40, level: Low}
  - {min: 50, max: 101, level: High}
`), 0o600))

		_, err := LoadConfidenceTable(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfidenceTable(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("load fails on bad table", func(t *testing.T) {
		path := filepath.Join(dir, "short.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ranges:\n  - {min: 0, max: 100, level: High}\n"), 0o600))
		t.Setenv("C1FAPP_ENV", "test")
		t.Setenv("C1FAPP_CONFIDENCE_TABLE", path)
		_, err := Load()
		assert.Error(t, err)
	})
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}
