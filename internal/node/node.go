// Package node provides a reusable ledger node that can be embedded in any
// binary (daemon, tests, tools).
package node

import (
	"fmt"
	"os"

	"github.com/Klingon-tech/assetledger/config"
	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/auth"
	"github.com/Klingon-tech/assetledger/internal/dispatch"
	"github.com/Klingon-tech/assetledger/internal/event"
	klog "github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/metrics"
	"github.com/Klingon-tech/assetledger/internal/oracle"
	"github.com/Klingon-tech/assetledger/internal/redeem"
	"github.com/Klingon-tech/assetledger/internal/rpc"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/internal/voucher"
	"github.com/Klingon-tech/assetledger/pkg/types"
	"github.com/rs/zerolog"
)

// Storage namespaces. Every component gets its own prefix in the one DB.
var (
	nsAssets   = []byte("a/")
	nsPrices   = []byte("o/")
	nsVouchers = []byte("v/")
	nsRedeem   = []byte("r/")
	nsNonces   = []byte("n/")
	nsMeta     = []byte("m/")
)

// Node is a fully-initialized ledger node.
type Node struct {
	cfg     *config.Config
	genesis *config.Genesis
	logger  zerolog.Logger

	// Core
	db         storage.DB
	bus        *event.Bus
	metrics    *metrics.Metrics
	engine     *asset.Engine
	vouchers   *voucher.Ledger
	prices     *oracle.Table
	outbox     *redeem.Outbox
	authorizer *auth.Authorizer
	dispatcher *dispatch.Dispatcher

	// RPC
	rpcServer *rpc.Server
}

// New creates a node for cfg. The genesis comes from cfg.GenesisFile when
// set, otherwise from the built-in genesis of cfg.Network.
func New(cfg *config.Config) (*Node, error) {
	genesis := config.GenesisFor(cfg.Network)
	if cfg.GenesisFile != "" {
		g, err := config.LoadGenesis(expandHome(cfg.GenesisFile))
		if err != nil {
			return nil, err
		}
		genesis = g
	}
	return NewWithGenesis(cfg, genesis)
}

// NewWithGenesis creates and initializes a node: storage, genesis state,
// ledger components and the RPC server. It does NOT start serving; call
// Start() for that.
func NewWithGenesis(cfg *config.Config, genesis *config.Genesis) (*Node, error) {
	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}
	logger := klog.WithComponent("node")

	// ── 2. Genesis ──────────────────────────────────────────────────
	if err := genesis.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	genesisHash, err := genesis.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash genesis: %w", err)
	}
	rootKeys, err := genesis.RootKeyBytes()
	if err != nil {
		return nil, err
	}
	aliases, err := genesis.AliasAddresses()
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Str("genesis", genesisHash.String()[:16]+"...").
		Int("root_keys", len(rootKeys)).
		Msg("Starting asset ledger node")

	// ── 3. Open storage ─────────────────────────────────────────────
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := checkGenesis(storage.NewPrefixDB(db, nsMeta), genesisHash); err != nil {
		db.Close()
		return nil, err
	}

	// ── 4. Events and metrics ───────────────────────────────────────
	bus := event.NewBus(cfg.Events.History)
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if err := bus.SubscribeAll(m.CountEvent); err != nil {
			db.Close()
			return nil, fmt.Errorf("subscribe metrics: %w", err)
		}
	}

	// ── 5. Ledger components ────────────────────────────────────────
	reg, err := asset.NewRegistryWithCache(storage.NewPrefixDB(db, nsAssets), cfg.Storage.CacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open registry: %w", err)
	}
	fresh, err := reg.InitGenesis(genesisAssets(genesis), genesis.NextAssetID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init genesis assets: %w", err)
	}

	prices, err := oracle.NewTable(storage.NewPrefixDB(db, nsPrices), bus)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open price table: %w", err)
	}
	if err := prices.Seed(genesis.Prices); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed prices: %w", err)
	}

	vouchers, err := voucher.New(storage.NewPrefixDB(db, nsVouchers), genesis.VoucherTotalSupply, bus)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open voucher ledger: %w", err)
	}

	outbox, err := redeem.NewOutbox(storage.NewPrefixDB(db, nsRedeem))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open redemption outbox: %w", err)
	}

	engine := asset.NewEngine(reg, asset.EngineConfig{
		Oracle:   prices,
		Redeemer: outbox,
		Events:   bus,
	})
	authorizer := auth.NewAuthorizer(storage.NewPrefixDB(db, nsNonces), rootKeys)
	dispatcher := dispatch.New(dispatch.Config{
		Engine:   engine,
		Vouchers: vouchers,
		Prices:   prices,
		Outbox:   outbox,
		Resolver: auth.NewResolver(aliases),
		Metrics:  m,
	})

	entries, err := reg.List()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("list assets: %w", err)
	}
	remaining, err := vouchers.Remaining()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("voucher pool: %w", err)
	}
	if m != nil {
		m.SetAssets(len(entries))
		m.SetVoucherRemaining(remaining)
	}

	logger.Info().
		Bool("fresh", fresh).
		Int("assets", len(entries)).
		Str("voucher_remaining", remaining.String()).
		Msg("Ledger state loaded")

	n := &Node{
		cfg:        cfg,
		genesis:    genesis,
		logger:     logger,
		db:         db,
		bus:        bus,
		metrics:    m,
		engine:     engine,
		vouchers:   vouchers,
		prices:     prices,
		outbox:     outbox,
		authorizer: authorizer,
		dispatcher: dispatcher,
	}

	// ── 6. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(addr, rpc.Services{
			Network:    string(cfg.Network),
			Genesis:    genesis,
			Engine:     engine,
			Vouchers:   vouchers,
			Prices:     prices,
			Outbox:     outbox,
			Auth:       authorizer,
			Dispatcher: dispatcher,
			Events:     bus,
			Metrics:    m,
		}, cfg.RPC)
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return n, nil
}

// Start binds the RPC listener.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return err
		}
		n.logger.Info().
			Str("addr", n.rpcServer.Addr()).
			Bool("metrics", n.metrics != nil).
			Msg("RPC server listening")
	}
	n.logger.Info().Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.metrics != nil {
		n.bus.UnsubscribeAll(n.metrics.CountEvent)
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Closing database")
		}
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Genesis returns the genesis the node was initialized from.
func (n *Node) Genesis() *config.Genesis { return n.genesis }

// Engine returns the asset engine.
func (n *Node) Engine() *asset.Engine { return n.engine }

// Vouchers returns the voucher ledger.
func (n *Node) Vouchers() *voucher.Ledger { return n.vouchers }

// Prices returns the price table.
func (n *Node) Prices() *oracle.Table { return n.prices }

// Outbox returns the redemption outbox.
func (n *Node) Outbox() *redeem.Outbox { return n.outbox }

// Dispatcher returns the call dispatcher.
func (n *Node) Dispatcher() *dispatch.Dispatcher { return n.dispatcher }

// Events returns the event bus.
func (n *Node) Events() *event.Bus { return n.bus }

// Metrics returns the metrics collectors, or nil when disabled.
func (n *Node) Metrics() *metrics.Metrics { return n.metrics }

// openDB opens the configured storage backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendBadger, "":
		dir := cfg.LedgerDir()
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
		db, err := storage.NewBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open database at %s: %w", dir, err)
		}
		klog.Node.Info().Str("path", dir).Msg("Database opened")
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
