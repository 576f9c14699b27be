package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 50, cfg.TTLock.PageSize)
	assert.Equal(t, 15*time.Second, cfg.TTLock.RequestTimeout)
	assert.Equal(t, "https://euapi.ttlock.com", cfg.TTLock.BaseURL)
	assert.Equal(t, 1, cfg.Owners.SkipRows)
	assert.Equal(t, "ბინის #", cfg.Owners.UnitColumn)
	assert.Equal(t, "Partner's Name", cfg.Ledger.PartnerColumn)
	assert.Equal(t, []string{"postgres"}, cfg.Storage.Sinks)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("TTLOCK_API_URL", "https://api.example.com/")
	t.Setenv("TTLOCK_PAGE_SIZE", "20")
	t.Setenv("TTLOCK_LOCK_IDS", "26986212, 26436420")
	t.Setenv("SINKS", "postgres, mongo")
	t.Setenv("TTLOCK_TIMEOUT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.TTLock.BaseURL)
	assert.Equal(t, 20, cfg.TTLock.PageSize)
	assert.Equal(t, []int64{26986212, 26436420}, cfg.TTLock.LockIDs)
	assert.Equal(t, []string{"postgres", "mongo"}, cfg.Storage.Sinks)
	assert.Equal(t, 15*time.Second, cfg.TTLock.RequestTimeout)
}

func TestLoadConfig_InvalidLockID(t *testing.T) {
	t.Setenv("TTLOCK_LOCK_IDS", "123,abc")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc")
}

func TestConfig_Validate(t *testing.T) {
	t.Run("missing values are all reported", func(t *testing.T) {
		cfg := &Config{
			TTLock:  TTLockConfig{BaseURL: "https://euapi.ttlock.com", PageSize: 50, FetchConcurrency: 1},
			Storage: StorageConfig{Sinks: []string{"postgres", "redis"}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TTLOCK_CLIENT_ID")
		assert.Contains(t, err.Error(), "TTLOCK_ACCESS_TOKEN")
		assert.Contains(t, err.Error(), "OWNERS_CSV")
		assert.Contains(t, err.Error(), "POSTGRES_DSN")
		assert.Contains(t, err.Error(), `unknown sink "redis"`)
	})

	t.Run("complete config passes", func(t *testing.T) {
		cfg := &Config{
			TTLock: TTLockConfig{
				BaseURL: "https://euapi.ttlock.com", ClientID: "id", AccessToken: "token",
				PageSize: 50, FetchConcurrency: 2,
			},
			Sheets:  SheetsConfig{SpreadsheetID: "sheet", OwnerRange: "Owners!A1:H"},
			Storage: StorageConfig{Sinks: []string{"mongo"}, MongoURI: "mongodb://localhost:27017"},
		}
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.UsesSheets())
	})
}
