// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Backend names for the persistence layer.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// Config holds configuration knobs for the HTTP server, storage backends,
// and the dispatch engine.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	StorageBackend string
	MySQLDSN       string
	RedisAddr      string

	RateLimitPerSecond int
	RatePollInterval   time.Duration
	DispatchWorkers    int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),

		StorageBackend: getenv("STORAGE_BACKEND", BackendMemory),
		MySQLDSN:       getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/restock?parseTime=true"),
		RedisAddr:      getenv("REDIS_ADDR", ""),

		RateLimitPerSecond: atoienv("RATE_LIMIT_PER_SEC", 500),
		RatePollInterval:   durenvms("RATE_POLL_INTERVAL_MS", 5),
		DispatchWorkers:    atoienv("DISPATCH_WORKERS", 50),
	}
}
