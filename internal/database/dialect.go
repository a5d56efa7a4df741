package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

// dialector resolves the gorm dialector for the normalised driver name.
func dialector(driver string, cfg Config) (gorm.Dialector, error) {
	switch driver {
	case "sqlite", "sqlite3":
		dsn, err := sqliteDSN(cfg)
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		dsn, err := postgresDSN(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(postgres.Config{DSN: dsn}), nil
	case "mysql", "mariadb":
		dsn, err := mysqlDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// sqliteDSN creates the parent directory of a file database and enables WAL.
func sqliteDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return sqliteMemoryDSN, nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return "file:" + filepath.ToSlash(path) + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", nil
}

// postgresDSN renders a postgres:// URL so credentials are escaped. Sessions
// run in UTC and TLS is off unless sslmode says otherwise.
func postgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	query := url.Values{}
	query.Set("sslmode", "disable")
	query.Set("TimeZone", "UTC")
	for key, value := range cfg.Options {
		query.Set(key, value)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.User(cfg.User),
		Host:     net.JoinHostPort(orDefault(cfg.Host, "localhost"), strconv.Itoa(portOrDefault(cfg.Port, 5432))),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	if cfg.Password != "" {
		dsn.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return dsn.String(), nil
}

// mysqlDSN builds the DSN through the driver's own formatter.
func mysqlDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	my := mysqldriver.NewConfig()
	my.User = cfg.User
	my.Passwd = cfg.Password
	my.Net = "tcp"
	my.Addr = net.JoinHostPort(orDefault(cfg.Host, "127.0.0.1"), strconv.Itoa(portOrDefault(cfg.Port, 3306)))
	my.DBName = cfg.Name
	my.ParseTime = true
	my.Loc = time.UTC
	my.Params = map[string]string{"charset": "utf8mb4"}
	for key, value := range cfg.Options {
		my.Params[key] = value
	}
	return my.FormatDSN(), nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func portOrDefault(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}
