// internal/infrastructure/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SyncSchedule string

	TTLock  TTLockConfig
	Owners  OwnerExtractConfig
	Ledger  TransactionExtractConfig
	Sheets  SheetsConfig
	Storage StorageConfig

	UnitRulesFile string
	SnapshotFile  string
}

// TTLockConfig is the lock-management API configuration handed to the client
type TTLockConfig struct {
	BaseURL          string
	ClientID         string
	AccessToken      string
	PageSize         int
	RequestTimeout   time.Duration
	FetchConcurrency int
	LockIDs          []int64
	GroupID          string
}

// OwnerExtractConfig describes the owner/financial register
type OwnerExtractConfig struct {
	Path        string
	SkipRows    int
	OwnerColumn string
	UnitColumn  string
	FeeColumn   string
	DebtColumn  string
}

// TransactionExtractConfig describes the transaction history
type TransactionExtractConfig struct {
	Path              string
	SkipRows          int
	DescriptionColumn string
	PartnerColumn     string
}

// SheetsConfig selects a Google Sheets range as owner register instead of a file
type SheetsConfig struct {
	SpreadsheetID string
	OwnerRange    string
	ClientID      string
	ClientSecret  string
	RefreshToken  string
}

// StorageConfig lists the snapshot sinks
type StorageConfig struct {
	Sinks       []string
	PostgresURI string
	MongoURI    string
	MongoDB     string
	MongoUser   string
	MongoPass   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	lockIDs, err := getEnvAsInt64List("TTLOCK_LOCK_IDS")
	if err != nil {
		return nil, err
	}

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,
		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 0 3 * * *"),

		TTLock: TTLockConfig{
			BaseURL:          strings.TrimRight(getEnv("TTLOCK_API_URL", "https://euapi.ttlock.com"), "/"),
			ClientID:         getEnv("TTLOCK_CLIENT_ID", ""),
			AccessToken:      getEnv("TTLOCK_ACCESS_TOKEN", ""),
			PageSize:         getEnvAsInt("TTLOCK_PAGE_SIZE", 50),
			RequestTimeout:   time.Duration(getEnvAsInt("TTLOCK_TIMEOUT", 15)) * time.Second,
			FetchConcurrency: getEnvAsInt("FETCH_CONCURRENCY", 4),
			LockIDs:          lockIDs,
			GroupID:          getEnv("TTLOCK_GROUP_ID", ""),
		},

		Owners: OwnerExtractConfig{
			Path:        getEnv("OWNERS_CSV", ""),
			SkipRows:    getEnvAsInt("OWNERS_SKIP_ROWS", 1),
			OwnerColumn: getEnv("OWNERS_OWNER_COLUMN", "მესაკუთრეები:"),
			UnitColumn:  getEnv("OWNERS_UNIT_COLUMN", "ბინის #"),
			FeeColumn:   getEnv("OWNERS_FEE_COLUMN", "მოსაკრებელი თვეში"),
			DebtColumn:  getEnv("OWNERS_DEBT_COLUMN", "ყოველთვიური მოსაკრებლის დავალიანება"),
		},

		Ledger: TransactionExtractConfig{
			Path:              getEnv("TRANSACTIONS_CSV", ""),
			SkipRows:          getEnvAsInt("TRANSACTIONS_SKIP_ROWS", 1),
			DescriptionColumn: getEnv("TRANSACTIONS_DESCRIPTION_COLUMN", "Description"),
			PartnerColumn:     getEnv("TRANSACTIONS_PARTNER_COLUMN", "Partner's Name"),
		},

		Sheets: SheetsConfig{
			SpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
			OwnerRange:    getEnv("SHEETS_OWNER_RANGE", ""),
			ClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
			RefreshToken:  getEnv("GOOGLE_REFRESH_TOKEN", ""),
		},

		Storage: StorageConfig{
			Sinks:       getEnvAsList("SINKS", []string{"postgres"}),
			PostgresURI: getEnv("POSTGRES_DSN", ""),
			MongoURI:    getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
			MongoDB:     getEnv("MONGO_DB", "building_access"),
			MongoUser:   getEnv("MONGO_USER", ""),
			MongoPass:   getEnv("MONGO_PASSWORD", ""),
		},

		UnitRulesFile: getEnv("UNIT_RULES_FILE", ""),
		SnapshotFile:  getEnv("SNAPSHOT_FILE", ""),
	}

	return config, nil
}

// UsesSheets reports whether the owner register is read from Google Sheets
func (c *Config) UsesSheets() bool {
	return c.Sheets.SpreadsheetID != "" && c.Sheets.OwnerRange != ""
}

// Validate reports every missing value a sync run needs
func (c *Config) Validate() error {
	var errs []error
	if c.TTLock.BaseURL == "" {
		errs = append(errs, errors.New("TTLOCK_API_URL is required"))
	}
	if c.TTLock.ClientID == "" {
		errs = append(errs, errors.New("TTLOCK_CLIENT_ID is required"))
	}
	if c.TTLock.AccessToken == "" {
		errs = append(errs, errors.New("TTLOCK_ACCESS_TOKEN is required"))
	}
	if c.TTLock.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("TTLOCK_PAGE_SIZE must be positive, got %d", c.TTLock.PageSize))
	}
	if c.TTLock.FetchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.TTLock.FetchConcurrency))
	}
	if c.Owners.Path == "" && !c.UsesSheets() {
		errs = append(errs, errors.New("OWNERS_CSV or SHEETS_SPREADSHEET_ID and SHEETS_OWNER_RANGE are required"))
	}
	for _, sink := range c.Storage.Sinks {
		switch sink {
		case "postgres":
			if c.Storage.PostgresURI == "" {
				errs = append(errs, errors.New("POSTGRES_DSN is required by the postgres sink"))
			}
		case "mongo":
			if c.Storage.MongoURI == "" {
				errs = append(errs, errors.New("MONGODB_DSN is required by the mongo sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown sink %q", sink))
		}
	}
	return errors.Join(errs...)
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt64List(key string) ([]int64, error) {
	var out []int64
	for _, part := range getEnvAsList(key, nil) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid lock id %q in %s: %w", part, key, err)
		}
		out = append(out, id)
	}
	return out, nil
}
