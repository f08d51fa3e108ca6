// Package oracle keeps the per-asset conversion prices used to weight cost
// and income.
package oracle

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// ErrUnknownSymbol is returned by SetBySymbol for symbols without a fixed id.
var ErrUnknownSymbol = errors.New("unknown price symbol")

var prefixPrice = []byte("p/") // p/<id(4)> -> amount (16 bytes BE)

// Entry is one asset's price.
type Entry struct {
	Asset types.AssetID `json:"asset_id"`
	Price types.Amount  `json:"price"`
}

// Table is a persisted price table. Reads are served from memory; every Set
// writes through to storage. Unknown assets price at zero.
type Table struct {
	mu     sync.RWMutex
	db     storage.DB
	prices map[types.AssetID]types.Amount
	events event.Sink
}

// NewTable loads the stored prices from db.
func NewTable(db storage.DB, events event.Sink) (*Table, error) {
	if events == nil {
		events = event.Discard
	}
	t := &Table{db: db, prices: make(map[types.AssetID]types.Amount), events: events}
	err := db.ForEach(prefixPrice, func(key, value []byte) error {
		id, err := types.AssetIDFromBytes(key[len(prefixPrice):])
		if err != nil {
			return nil // Malformed key, skip.
		}
		price, err := types.AmountFromBytes(value)
		if err != nil {
			return fmt.Errorf("price %d: %w", id, err)
		}
		t.prices[id] = price
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	return t, nil
}

// PriceOf returns the current price of id.
func (t *Table) PriceOf(id types.AssetID) types.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.prices[id]
}

// Set stores the price of id.
func (t *Table) Set(id types.AssetID, price types.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := append(append([]byte{}, prefixPrice...), id.Bytes()...)
	if err := t.db.Put(key, price.Bytes()); err != nil {
		return fmt.Errorf("price set: %w", err)
	}
	t.prices[id] = price

	t.events.Emit(event.Event{Kind: event.KindPriceSet, Asset: id, Price: price})
	log.Oracle.Debug().Uint32("asset", uint32(id)).Str("price", price.String()).Msg("Price set")
	return nil
}

// SetBySymbol stores the price of a well-known symbol (DOT, KSM, EOS).
func (t *Table) SetBySymbol(symbol string, price types.Amount) (types.AssetID, error) {
	id, ok := types.ReservedAssetID(symbol)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return id, t.Set(id, price)
}

// Seed stores prices for assets that have none yet. Existing prices win, so
// seeding from genesis on every start is harmless.
func (t *Table) Seed(prices map[types.AssetID]types.Amount) error {
	ids := make([]types.AssetID, 0, len(prices))
	for id := range prices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		t.mu.RLock()
		_, have := t.prices[id]
		t.mu.RUnlock()
		if have {
			continue
		}
		if err := t.Set(id, prices[id]); err != nil {
			return err
		}
	}
	return nil
}

// All returns every stored price in id order.
func (t *Table) All() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.prices))
	for id, p := range t.prices {
		out = append(out, Entry{Asset: id, Price: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}
