// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Ledger rules: defined in genesis (reserved assets, root keys, voucher
//     supply), fixed for the lifetime of a data directory
//   - Node settings: runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
type Config struct {
	// Core
	Network     NetworkType `conf:"network"`
	DataDir     string      `conf:"datadir"`
	GenesisFile string      `conf:"genesis"` // Empty = built-in genesis for Network

	// Storage backend
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Prometheus endpoint
	Metrics MetricsConfig

	// Event history
	Events EventsConfig

	// Logging
	Log LogConfig
}

// Storage backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// StorageConfig selects where ledger state lives.
type StorageConfig struct {
	Backend   string `conf:"storage.backend"` // badger or memory
	CacheSize int    `conf:"storage.cache"`   // Token pair cache entries
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig controls the /metrics endpoint on the RPC server.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// EventsConfig controls the in-memory event history.
type EventsConfig struct {
	History int `conf:"events.history"` // Events kept for events_recent
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.assetledger
//	macOS:   ~/Library/Application Support/AssetLedger
//	Windows: %APPDATA%\AssetLedger
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assetledger"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "AssetLedger")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "AssetLedger")
		}
		return filepath.Join(home, "AppData", "Roaming", "AssetLedger")
	default:
		return filepath.Join(home, ".assetledger")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// LedgerDir returns the ledger database directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ledgerd.conf")
}

// RPCEndpoint returns the HTTP URL the RPC server listens on.
func (c *Config) RPCEndpoint() string {
	return "http://" + c.RPC.Addr + ":" + itoa(c.RPC.Port)
}
