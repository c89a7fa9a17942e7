package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers accepted by PLANNER_DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MinJWTSecretLength is the shortest accepted HMAC secret in bytes.
const MinJWTSecretLength = 32

// Config captures environment driven configuration values for the planning service.
type Config struct {
	HTTPPort             int
	DBDriver             string
	SQLiteDSN            string
	PostgresDSN          string
	JWTSecret            string
	TokenTTL             time.Duration
	AdminUsername        string
	AdminPassword        string
	AdminEmail           string
	AvailabilityCacheTTL time.Duration
}

// AdminConfigured reports whether both bootstrap administrator credentials are set.
func (c Config) AdminConfigured() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

// DSN returns the data source name of the selected driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return c.PostgresDSN
	}
	return c.SQLiteDSN
}

// Load reads a .env file from the working directory when one exists and then
// parses configuration values from the process environment. Variables already
// set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf(".env ファイルを読み込めません: %w", err)
	}
	return Parse(os.Getenv)
}

// Parse builds a Config from lookup, applying defaults for optional fields.
// Every missing or invalid variable is reported in one error.
func Parse(lookup func(string) string) (Config, error) {
	get := func(key string) string { return strings.TrimSpace(lookup(key)) }

	cfg := Config{
		HTTPPort:             8080,
		DBDriver:             DriverSQLite,
		SQLiteDSN:            "file:planner.db",
		TokenTTL:             24 * time.Hour,
		AvailabilityCacheTTL: 30 * time.Second,
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if portValue := get("PLANNER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "PLANNER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.ToLower(get("PLANNER_DB_DRIVER")); driver != "" {
		switch driver {
		case DriverSQLite, DriverPostgres:
			cfg.DBDriver = driver
		default:
			invalid = append(invalid, "PLANNER_DB_DRIVER")
		}
	}

	if dsn := get("PLANNER_SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.PostgresDSN = get("PLANNER_POSTGRES_DSN")
	if cfg.DBDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "PLANNER_POSTGRES_DSN")
	}

	switch secret := get("PLANNER_JWT_SECRET"); {
	case secret == "":
		missing = append(missing, "PLANNER_JWT_SECRET")
	case len(secret) < MinJWTSecretLength:
		invalid = append(invalid, "PLANNER_JWT_SECRET")
	default:
		cfg.JWTSecret = secret
	}

	if ttlValue := get("PLANNER_TOKEN_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PLANNER_TOKEN_TTL")
		} else {
			cfg.TokenTTL = ttl
		}
	}

	// A zero cache TTL disables the availability check cache.
	if ttlValue := get("PLANNER_AVAILABILITY_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "PLANNER_AVAILABILITY_CACHE_TTL")
		} else {
			cfg.AvailabilityCacheTTL = ttl
		}
	}

	cfg.AdminUsername = get("PLANNER_ADMIN_USERNAME")
	cfg.AdminPassword = lookup("PLANNER_ADMIN_PASSWORD")
	cfg.AdminEmail = get("PLANNER_ADMIN_EMAIL")
	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		if cfg.AdminUsername == "" {
			missing = append(missing, "PLANNER_ADMIN_USERNAME")
		} else {
			missing = append(missing, "PLANNER_ADMIN_PASSWORD")
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}
