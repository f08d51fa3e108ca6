package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/pkg/crypto"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// =============================================================================
// Ledger Rules (applied once, defined in genesis)
// =============================================================================

// Default precisions of the reserved assets.
const (
	ReservedTokenPrecision  = 4
	ReservedVTokenPrecision = 8
)

// DefaultVoucherSupply is 80,000,000 vouchers at 12 decimals.
const DefaultVoucherSupply = "80000000000000000000"

// Genesis holds the initial ledger state and rules. It is applied when a data
// directory is first opened; later edits have no effect on existing state.
type Genesis struct {
	// Chain identity
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Timestamp uint64 `json:"timestamp"`

	// Reserved assets and the first id handed out by create.
	Assets      []GenesisAsset `json:"assets"`
	NextAssetID types.AssetID  `json:"next_asset_id"`

	// Fixed voucher pool.
	VoucherTotalSupply types.Amount `json:"voucher_total_supply"`

	// Compressed secp256k1 public keys (hex) allowed to make root calls.
	RootKeys []string `json:"root_keys"`

	// Account aliases usable as "@name" (name -> address).
	Aliases map[string]string `json:"aliases,omitempty"`

	// Initial conversion prices (asset id -> price).
	Prices map[types.AssetID]types.Amount `json:"prices,omitempty"`
}

// GenesisAsset is one reserved token pair.
type GenesisAsset struct {
	ID              types.AssetID `json:"id"`
	Symbol          string        `json:"symbol"`
	Precision       uint16        `json:"precision"`
	VTokenSymbol    string        `json:"vtoken_symbol"`
	VTokenPrecision uint16        `json:"vtoken_precision"`
}

// =============================================================================
// Testnet Identity
//
// Derived from the well-known BIP-39 test mnemonic (DO NOT use on mainnet):
//
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon abandon
//	abandon abandon abandon abandon abandon abandon abandon art
//
// Derivation path: m/44'/8888'/0'/0/0 (no passphrase)
// =============================================================================

const (
	// TestnetMnemonic is the well-known seed phrase for the testnet root key.
	TestnetMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

	// TestnetRootPubKey is the compressed public key (hex) derived from TestnetMnemonic.
	TestnetRootPubKey = "030bef68f8657df88098a0546da1712c88b459788bea1a6bbe964004166a25144f"

	// TestnetRootPrivKey is the private key (hex) derived from TestnetMnemonic.
	TestnetRootPrivKey = "1f0717e6e34acc6721021f4dfed54558ec8452452b6195545d06dd348b220091"

	// TestnetRootAddress is the address (bech32, tbnc) derived from TestnetMnemonic.
	// Address = BLAKE3(pubkey)[:20]
	TestnetRootAddress = "tbnc13uayfwq9djh7cd5dagxtuzk3mx7r7sc90eqsrn"
)

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

func reservedAssets() []GenesisAsset {
	symbols := []string{"DOT", "KSM", "EOS"}
	assets := make([]GenesisAsset, len(symbols))
	for i, sym := range symbols {
		id, _ := types.ReservedAssetID(sym)
		assets[i] = GenesisAsset{
			ID:              id,
			Symbol:          sym,
			Precision:       ReservedTokenPrecision,
			VTokenSymbol:    "v" + sym,
			VTokenPrecision: ReservedVTokenPrecision,
		}
	}
	return assets
}

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:            "assetledger-mainnet-1",
		ChainName:          "Asset Ledger Mainnet",
		Timestamp:          1770734103, // 2026-02-10
		Assets:             reservedAssets(),
		NextAssetID:        types.ReservedAssetCount,
		VoucherTotalSupply: types.MustParseAmount(DefaultVoucherSupply),
		RootKeys: []string{
			"03cba4d0ee4c55f5ea620393a6e6e9dafe959bfa6ddff964221126a3e41ad0487d",
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "assetledger-testnet-1"
	g.ChainName = "Asset Ledger Testnet"

	// Testnet root: derived from the well-known mnemonic.
	g.RootKeys = []string{TestnetRootPubKey}
	g.Aliases = map[string]string{"root": TestnetRootAddress}

	// Non-zero prices so cost and income move on testnet.
	g.Prices = map[types.AssetID]types.Amount{
		types.AssetDOT: types.NewAmount(100),
		types.AssetKSM: types.NewAmount(10),
		types.AssetEOS: types.NewAmount(1),
	}
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}

	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}

	return nil
}

// Validate checks that the genesis configuration is valid.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}

	next := g.NextAssetID
	if next < types.ReservedAssetCount {
		next = types.ReservedAssetCount
	}
	seen := make(map[types.AssetID]struct{}, len(g.Assets))
	for i, a := range g.Assets {
		if err := asset.ValidateToken(a.Symbol, a.Precision); err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
		if err := asset.ValidateToken(a.VTokenSymbol, a.VTokenPrecision); err != nil {
			return fmt.Errorf("assets[%d] vtoken: %w", i, err)
		}
		if a.ID >= next {
			return fmt.Errorf("assets[%d]: id %d must be below next_asset_id %d", i, a.ID, next)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("assets[%d]: duplicate id %d", i, a.ID)
		}
		seen[a.ID] = struct{}{}
	}

	if g.VoucherTotalSupply.IsZero() {
		return fmt.Errorf("voucher_total_supply must be positive")
	}

	if len(g.RootKeys) == 0 {
		return fmt.Errorf("at least one root key is required")
	}
	if _, err := g.RootKeyBytes(); err != nil {
		return err
	}
	if _, err := g.AliasAddresses(); err != nil {
		return err
	}

	return nil
}

// RootKeyBytes decodes the root public keys.
func (g *Genesis) RootKeyBytes() ([][]byte, error) {
	keys := make([][]byte, 0, len(g.RootKeys))
	for i, s := range g.RootKeys {
		pub, err := crypto.ParsePubKeyHex(s)
		if err != nil {
			return nil, fmt.Errorf("root_keys[%d]: %w", i, err)
		}
		keys = append(keys, pub)
	}
	return keys, nil
}

// RootAddresses returns the account address of every root key.
func (g *Genesis) RootAddresses() ([]types.Address, error) {
	keys, err := g.RootKeyBytes()
	if err != nil {
		return nil, err
	}
	addrs := make([]types.Address, len(keys))
	for i, k := range keys {
		addrs[i] = crypto.AddressFromPubKey(k)
	}
	return addrs, nil
}

// AliasAddresses parses the alias table.
func (g *Genesis) AliasAddresses() (map[string]types.Address, error) {
	out := make(map[string]types.Address, len(g.Aliases))
	names := make([]string, 0, len(g.Aliases))
	for name := range g.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		clean := strings.TrimSpace(name)
		if clean == "" || strings.HasPrefix(clean, "@") {
			return nil, fmt.Errorf("alias %q: name must be non-empty and not start with @", name)
		}
		addr, err := types.ParseAddress(g.Aliases[name])
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", name, err)
		}
		key := strings.ToLower(clean)
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("alias %q defined twice (names are case-insensitive)", name)
		}
		out[key] = addr
	}
	return out, nil
}

// Hash returns a BLAKE3 hash of the genesis configuration.
// Used to detect a data directory opened with a different genesis.
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
