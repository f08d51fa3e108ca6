package asset

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// Key layout within the asset namespace:
//
//	n                         -> next asset id (4 bytes BE)
//	g                         -> genesis marker
//	t/<id(4)>                 -> TokenPair JSON
//	b/<id(4)><tt(1)><addr(20)> -> AccountAsset JSON
//	i/<addr(20)>              -> []AssetID JSON (account index)
var (
	keyNextID     = []byte("n")
	keyGenesis    = []byte("g")
	prefixPair    = []byte("t/")
	prefixAccount = []byte("b/")
	prefixIndex   = []byte("i/")
)

// DefaultCacheSize is the number of token pairs kept in memory.
const DefaultCacheSize = 4096

func pairKey(id types.AssetID) []byte {
	return append(append([]byte{}, prefixPair...), id.Bytes()...)
}

func accountKey(id types.AssetID, tt types.TokenType, addr types.Address) []byte {
	k := make([]byte, 0, len(prefixAccount)+types.AssetIDSize+1+types.AddressSize)
	k = append(k, prefixAccount...)
	k = append(k, id.Bytes()...)
	k = append(k, byte(tt))
	return append(k, addr[:]...)
}

func indexKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixIndex...), addr[:]...)
}

// store is the state shared by Registry, Ledger and Engine. One RWMutex
// guards every read and write, so each public call is linearized.
type store struct {
	mu    sync.RWMutex
	db    storage.DB
	pairs *lru.Cache[types.AssetID, types.TokenPair]
}

func newStore(db storage.DB, cacheSize int) (*store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[types.AssetID, types.TokenPair](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("pair cache: %w", err)
	}
	return &store{db: db, pairs: cache}, nil
}

// tx stages the writes of one transition. Pair writes are tracked
// separately so the cache is only updated once the batch has landed.
type tx struct {
	txn    *storage.Txn
	s      *store
	staged map[types.AssetID]types.TokenPair
	events []event.Event
}

func (s *store) begin() *tx {
	return &tx{
		txn:    storage.NewTxn(s.db),
		s:      s,
		staged: make(map[types.AssetID]types.TokenPair),
	}
}

func (t *tx) commit() error {
	for id, p := range t.staged {
		id, p := id, p
		t.txn.OnCommit(func() { t.s.pairs.Add(id, p) })
	}
	if err := t.txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *tx) emit(e event.Event) {
	t.events = append(t.events, e)
}

// pair returns the staged or stored pair for id and whether it exists.
func (t *tx) pair(id types.AssetID) (types.TokenPair, bool, error) {
	if p, ok := t.staged[id]; ok {
		return p, true, nil
	}
	return t.s.loadPair(id)
}

func (t *tx) putPair(id types.AssetID, p types.TokenPair) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("pair marshal: %w", err)
	}
	t.txn.Put(pairKey(id), data)
	t.staged[id] = p
	return nil
}

func (t *tx) nextID() (types.AssetID, error) {
	data, ok, err := t.txn.Lookup(keyNextID)
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	if !ok {
		return types.ReservedAssetCount, nil
	}
	if len(data) != types.AssetIDSize {
		return 0, fmt.Errorf("next id: corrupt value of %d bytes", len(data))
	}
	return types.AssetID(binary.BigEndian.Uint32(data)), nil
}

func (t *tx) setNextID(id types.AssetID) {
	t.txn.Put(keyNextID, id.Bytes())
}

func (t *tx) account(id types.AssetID, tt types.TokenType, addr types.Address) (types.AccountAsset, error) {
	data, ok, err := t.txn.Lookup(accountKey(id, tt, addr))
	if err != nil || !ok {
		return types.AccountAsset{}, err
	}
	var rec types.AccountAsset
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.AccountAsset{}, fmt.Errorf("account asset unmarshal: %w", err)
	}
	return rec, nil
}

func (t *tx) putAccount(id types.AssetID, tt types.TokenType, addr types.Address, rec types.AccountAsset) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("account asset marshal: %w", err)
	}
	t.txn.Put(accountKey(id, tt, addr), data)
	return nil
}

func (t *tx) index(addr types.Address) ([]types.AssetID, error) {
	return decodeIndex(t.txn.Lookup(indexKey(addr)))
}

// register appends id to the account's index unless it is already there.
func (t *tx) register(id types.AssetID, addr types.Address) error {
	ids, err := t.index(addr)
	if err != nil {
		return err
	}
	for _, have := range ids {
		if have == id {
			return nil
		}
	}
	data, err := json.Marshal(append(ids, id))
	if err != nil {
		return fmt.Errorf("index marshal: %w", err)
	}
	t.txn.Put(indexKey(addr), data)
	t.emit(event.Event{Kind: event.KindAccountAssetCreated, Asset: id, To: event.Addr(addr)})
	return nil
}

func decodeIndex(data []byte, ok bool, err error) ([]types.AssetID, error) {
	if err != nil {
		return nil, fmt.Errorf("index get: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var ids []types.AssetID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("index unmarshal: %w", err)
	}
	return ids, nil
}

// loadPair reads a committed pair through the cache.
func (s *store) loadPair(id types.AssetID) (types.TokenPair, bool, error) {
	if p, ok := s.pairs.Get(id); ok {
		return p, true, nil
	}
	data, ok, err := storage.Lookup(s.db, pairKey(id))
	if err != nil {
		return types.TokenPair{}, false, fmt.Errorf("pair get: %w", err)
	}
	if !ok {
		return types.TokenPair{}, false, nil
	}
	var p types.TokenPair
	if err := json.Unmarshal(data, &p); err != nil {
		return types.TokenPair{}, false, fmt.Errorf("pair unmarshal: %w", err)
	}
	s.pairs.Add(id, p)
	return p, true, nil
}
