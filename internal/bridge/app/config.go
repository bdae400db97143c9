package app

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Host               string        // Bind address for the HTTP listener (default: 127.0.0.1)
	Port               int           // HTTP server port (default: 43110)
	EnableTLS          bool          // Serve HTTPS with a self-signed certificate (default: true)
	EnableDomainSocket bool          // Also listen on a Unix domain socket (default: true)
	SocketPath         string        // Domain socket path (default: <data dir>/bridge.sock)
	DataDir            string        // Directory for certs, key files, and JSON stores (default: ./bridge-data)
	VaultDatabaseFile  string        // Path to the SQLite vault database (default: <data dir>/vault.db)
	TokenTTL           time.Duration // Bearer token lifetime (default: 24h)
	PairingWindow      time.Duration // Pairing code validity window (default: 120s)
	PairOnStart        bool          // Generate a pairing code immediately on startup (default: false)
	CertValidityDays   int           // Self-signed certificate validity (default: 365)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	ResponseMaxAge       time.Duration // Approval response history retention (default: 24h)
}

func LoadConfig() Config {
	cfg := Config{
		Host:               getEnvOrDefault("BRIDGE_HOST", "127.0.0.1"),
		Port:               getEnvIntOrDefault("BRIDGE_PORT", 43110),
		EnableTLS:          getEnvBoolOrDefault("BRIDGE_ENABLE_TLS", true),
		EnableDomainSocket: getEnvBoolOrDefault("BRIDGE_ENABLE_SOCKET", true),
		SocketPath:         os.Getenv("BRIDGE_SOCKET_PATH"),
		DataDir:            getEnvOrDefault("BRIDGE_DATA_DIR", "bridge-data"),
		VaultDatabaseFile:  os.Getenv("BRIDGE_VAULT_DB"),
		TokenTTL:           getEnvDurationOrDefault("BRIDGE_TOKEN_TTL", 24*time.Hour),
		PairingWindow:      getEnvDurationOrDefault("BRIDGE_PAIRING_WINDOW", 120*time.Second),
		PairOnStart:        getEnvBoolOrDefault("BRIDGE_PAIR_ON_START", false),
		CertValidityDays:   getEnvIntOrDefault("BRIDGE_CERT_VALIDITY_DAYS", 365),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		ResponseMaxAge:       getEnvDurationOrDefault("BRIDGE_RESPONSE_MAX_AGE", 24*time.Hour),
	}

	if cfg.SocketPath == "" {
		cfg.SocketPath = filepath.Join(cfg.DataDir, "bridge.sock")
	}
	if cfg.VaultDatabaseFile == "" {
		cfg.VaultDatabaseFile = filepath.Join(cfg.DataDir, "vault.db")
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
