package config

import (
	"os"
	"time"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	HTTPAddr      string
	StorageDriver string // mysql or sqlite
	MySQLDSN      string
	SQLitePath    string
	RedisAddr     string
	CacheTTL      time.Duration
}

// FromEnv reads configuration from the environment, falling back to
// single-host defaults.
func FromEnv() Config {
	cfg := Config{
		HTTPAddr:      ":8080",
		StorageDriver: DriverMySQL,
		MySQLDSN:      "root:root@tcp(localhost:3306)/purefarm?parseTime=true",
		SQLitePath:    "stockledger.db",
		RedisAddr:     "localhost:6379",
		CacheTTL:      5 * time.Minute,
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	return cfg
}
