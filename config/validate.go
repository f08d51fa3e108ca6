package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendBadger
	}
	switch cfg.Storage.Backend {
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendBadger, BackendMemory)
	}
	if cfg.Storage.CacheSize < 0 {
		return fmt.Errorf("storage.cache must not be negative")
	}
	if cfg.Events.History < 0 {
		return fmt.Errorf("events.history must not be negative")
	}

	for i, ip := range cfg.RPC.AllowedIPs {
		if ip == "*" {
			continue
		}
		if net.ParseIP(ip) == nil {
			if _, _, err := net.ParseCIDR(ip); err != nil {
				return fmt.Errorf("rpc.allowed[%d] %q is not an IP or CIDR", i, ip)
			}
		}
	}

	if _, err := ParseLogLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLogLevel checks a log level name.
func ParseLogLevel(level string) (string, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return "info", nil
	case "trace", "debug", "warn", "error":
		return strings.ToLower(level), nil
	}
	return "", fmt.Errorf("log.level must be trace, debug, info, warn, or error")
}
