// Package asset implements the token registry, the per-account asset
// ledger and the engine that applies issue, transfer, destroy and redeem
// operations on top of them.
package asset

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// Entry pairs an asset id with its token pair.
type Entry struct {
	ID types.AssetID `json:"asset_id"`
	types.TokenPair
}

// GenesisAsset seeds one reserved asset at startup.
type GenesisAsset struct {
	ID         types.AssetID
	Symbol     string
	Precision  uint16
	VSymbol    string
	VPrecision uint16
}

// Registry allocates asset ids and stores token pairs.
type Registry struct {
	s *store
}

// NewRegistry opens a registry over db with the default pair cache size.
func NewRegistry(db storage.DB) (*Registry, error) {
	return NewRegistryWithCache(db, DefaultCacheSize)
}

// NewRegistryWithCache opens a registry caching up to size token pairs.
func NewRegistryWithCache(db storage.DB, size int) (*Registry, error) {
	s, err := newStore(db, size)
	if err != nil {
		return nil, err
	}
	return &Registry{s: s}, nil
}

// ValidateToken enforces the symbol and precision limits.
func ValidateToken(symbol string, precision uint16) error {
	if len(symbol) == 0 {
		return ErrEmptySymbol
	}
	if len(symbol) > types.MaxSymbolLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrSymbolTooLong, len(symbol), types.MaxSymbolLen)
	}
	if precision > types.MaxPrecision {
		return fmt.Errorf("%w: %d, max %d", ErrInvalidPrecision, precision, types.MaxPrecision)
	}
	return nil
}

// Create registers a token pair and returns its id. Reserved symbols map to
// their fixed ids; any other symbol takes the next free id.
func (r *Registry) Create(symbol string, precision uint16) (types.AssetID, types.TokenPair, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := r.s.begin()
	id, pair, err := create(t, symbol, precision)
	if err != nil {
		return 0, types.TokenPair{}, err
	}
	if err := t.commit(); err != nil {
		return 0, types.TokenPair{}, err
	}
	return id, pair, nil
}

// create stages a registration. Re-creating a reserved asset rewrites its
// metadata but keeps the supplies already issued, so the supply totals keep
// matching the account balances.
func create(t *tx, symbol string, precision uint16) (types.AssetID, types.TokenPair, error) {
	if err := ValidateToken(symbol, precision); err != nil {
		return 0, types.TokenPair{}, err
	}

	pair := types.NewTokenPair(symbol, precision)

	id, reserved := types.ReservedAssetID(symbol)
	if reserved {
		old, ok, err := t.pair(id)
		if err != nil {
			return 0, types.TokenPair{}, err
		}
		if ok {
			pair.Token.TotalSupply = old.Token.TotalSupply
			pair.VToken.TotalSupply = old.VToken.TotalSupply
		}
	} else {
		next, err := t.nextID()
		if err != nil {
			return 0, types.TokenPair{}, err
		}
		id = next
		t.setNextID(next + 1)
	}

	if err := t.putPair(id, pair); err != nil {
		return 0, types.TokenPair{}, err
	}
	return id, pair, nil
}

// Exists reports whether id has been registered.
func (r *Registry) Exists(id types.AssetID) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok, err := r.s.loadPair(id)
	return ok, err
}

// Lookup returns the pair for id, or the zero pair if id is unknown.
func (r *Registry) Lookup(id types.AssetID) (types.TokenPair, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, _, err := r.s.loadPair(id)
	return p, err
}

// FindBySymbol scans the account's asset index and returns the first asset
// whose token symbol and precision match.
func (r *Registry) FindBySymbol(account types.Address, symbol string, precision uint16) (types.AssetID, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids, err := decodeIndex(storage.Lookup(r.s.db, indexKey(account)))
	if err != nil {
		return 0, false, err
	}
	for _, id := range ids {
		p, ok, err := r.s.loadPair(id)
		if err != nil {
			return 0, false, err
		}
		if ok && p.Token.Symbol == symbol && p.Token.Precision == precision {
			return id, true, nil
		}
	}
	return 0, false, nil
}

// NextID returns the id the next non-reserved Create will allocate.
func (r *Registry) NextID() (types.AssetID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.begin().nextID()
}

// List returns every registered pair in id order.
func (r *Registry) List() ([]Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var entries []Entry
	err := r.s.db.ForEach(prefixPair, func(key, value []byte) error {
		id, err := types.AssetIDFromBytes(key[len(prefixPair):])
		if err != nil {
			return nil // Malformed key, skip.
		}
		var p types.TokenPair
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("pair %d unmarshal: %w", id, err)
		}
		entries = append(entries, Entry{ID: id, TokenPair: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	return entries, nil
}

// InitGenesis seeds the reserved assets and the id counter. It runs once per
// database; later calls are no-ops and report false.
func (r *Registry) InitGenesis(assets []GenesisAsset, nextID types.AssetID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	done, err := r.s.db.Has(keyGenesis)
	if err != nil {
		return false, fmt.Errorf("genesis marker: %w", err)
	}
	if done {
		return false, nil
	}

	if nextID < types.ReservedAssetCount {
		nextID = types.ReservedAssetCount
	}

	t := r.s.begin()
	for _, a := range assets {
		if err := ValidateToken(a.Symbol, a.Precision); err != nil {
			return false, fmt.Errorf("genesis asset %d: %w", a.ID, err)
		}
		if err := ValidateToken(a.VSymbol, a.VPrecision); err != nil {
			return false, fmt.Errorf("genesis asset %d vtoken: %w", a.ID, err)
		}
		if a.ID >= nextID {
			return false, fmt.Errorf("genesis asset %d: id not below next_asset_id %d", a.ID, nextID)
		}
		pair := types.TokenPair{
			Token:  types.TokenInfo{Symbol: a.Symbol, Precision: a.Precision},
			VToken: types.TokenInfo{Symbol: a.VSymbol, Precision: a.VPrecision},
		}
		if err := t.putPair(a.ID, pair); err != nil {
			return false, err
		}
	}
	t.setNextID(nextID)
	t.txn.Put(keyGenesis, []byte{1})

	if err := t.commit(); err != nil {
		return false, err
	}
	log.Registry.Info().Int("assets", len(assets)).Uint32("next_id", uint32(nextID)).Msg("Genesis assets seeded")
	return true, nil
}
