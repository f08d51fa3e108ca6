package asset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var (
	alice = types.Address{0xa1}
	bob   = types.Address{0xb0}
	carol = types.Address{0xc0}
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Emit(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []event.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// prices is a mutable oracle for tests.
type prices struct {
	mu sync.Mutex
	m  map[types.AssetID]types.Amount
}

func (p *prices) PriceOf(id types.AssetID) types.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.m[id]
}

func (p *prices) set(id types.AssetID, v uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[types.AssetID]types.Amount)
	}
	p.m[id] = types.NewAmount(v)
}

type fixture struct {
	db     *storage.MemoryDB
	reg    *Registry
	engine *Engine
	oracle *prices
	events *recorder
}

func newFixture(t *testing.T, redeemer Redeemer) *fixture {
	t.Helper()
	db := storage.NewMemory()
	reg, err := NewRegistry(db)
	require.NoError(t, err)
	f := &fixture{db: db, reg: reg, oracle: &prices{}, events: &recorder{}}
	f.engine = NewEngine(reg, EngineConfig{Oracle: f.oracle, Redeemer: redeemer, Events: f.events})
	return f
}

func amt(n uint64) types.Amount { return types.NewAmount(n) }
