package config

import "strconv"

// DefaultCacheSize is the default token pair cache size.
const DefaultCacheSize = 4096

// DefaultEventHistory is the default number of events kept in memory.
const DefaultEventHistory = 1024

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Storage: StorageConfig{
			Backend:   BackendBadger,
			CacheSize: DefaultCacheSize,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       9545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			History: DefaultEventHistory,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.RPC.Port = 9645
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

func defaultRPCPort(network NetworkType) string {
	return itoa(Default(network).RPC.Port)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
