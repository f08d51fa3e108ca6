package asset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

func TestRegistry_CreateReserved(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	for symbol, want := range map[string]types.AssetID{"DOT": 0, "KSM": 1, "EOS": 2} {
		id, pair, err := reg.Create(symbol, 4)
		require.NoError(t, err)
		assert.Equal(t, want, id, symbol)
		assert.Equal(t, types.NewTokenPair(symbol, 4), pair)
	}

	next, err := reg.NextID()
	require.NoError(t, err)
	assert.Equal(t, types.AssetID(types.ReservedAssetCount), next, "reserved symbols must not consume ids")
}

func TestRegistry_CreateAllocatesSequentially(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	id1, _, err := reg.Create("AAA", 2)
	require.NoError(t, err)
	id2, _, err := reg.Create("AAA", 2)
	require.NoError(t, err)

	assert.Equal(t, types.AssetID(3), id1)
	assert.Equal(t, types.AssetID(4), id2, "same symbol still gets a fresh id")

	next, err := reg.NextID()
	require.NoError(t, err)
	assert.Equal(t, types.AssetID(5), next)
}

func TestRegistry_CreateValidation(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	tests := []struct {
		name      string
		symbol    string
		precision uint16
		want      error
	}{
		{"empty", "", 4, ErrEmptySymbol},
		{"too long", strings.Repeat("X", 33), 4, ErrSymbolTooLong},
		{"precision", "ABC", 17, ErrInvalidPrecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := reg.Create(tt.symbol, tt.precision)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err = reg.Create(strings.Repeat("X", 32), 16)
	assert.NoError(t, err, "limits are inclusive")

	next, err := reg.NextID()
	require.NoError(t, err)
	assert.Equal(t, types.AssetID(4), next, "failed creates allocate nothing")
}

func TestRegistry_LookupAbsent(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	pair, err := reg.Lookup(42)
	require.NoError(t, err)
	assert.True(t, pair.IsZero())

	ok, err := reg.Exists(42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_Reopen(t *testing.T) {
	db := storage.NewMemory()
	reg, err := NewRegistry(db)
	require.NoError(t, err)
	id, _, err := reg.Create("ZZZ", 9)
	require.NoError(t, err)

	again, err := NewRegistryWithCache(db, 1)
	require.NoError(t, err)
	pair, err := again.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, "ZZZ", pair.VToken.Symbol)

	next, err := again.NextID()
	require.NoError(t, err)
	assert.Equal(t, id+1, next)
}

func TestRegistry_ListInIDOrder(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	_, _, err = reg.Create("AAA", 1)
	require.NoError(t, err)
	_, _, err = reg.Create("DOT", 4)
	require.NoError(t, err)

	entries, err := reg.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, types.AssetDOT, entries[0].ID)
	assert.Equal(t, types.AssetID(3), entries[1].ID)
	assert.Equal(t, "AAA", entries[1].Token.Symbol)
}

func TestRegistry_InitGenesis(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	assets := []GenesisAsset{
		{ID: types.AssetDOT, Symbol: "DOT", Precision: 4, VSymbol: "vDOT", VPrecision: 8},
		{ID: types.AssetKSM, Symbol: "KSM", Precision: 4, VSymbol: "vKSM", VPrecision: 8},
	}
	applied, err := reg.InitGenesis(assets, 10)
	require.NoError(t, err)
	assert.True(t, applied)

	pair, err := reg.Lookup(types.AssetDOT)
	require.NoError(t, err)
	assert.Equal(t, "vDOT", pair.VToken.Symbol)
	assert.Equal(t, uint16(8), pair.VToken.Precision)
	assert.Equal(t, uint16(4), pair.Token.Precision)

	next, err := reg.NextID()
	require.NoError(t, err)
	assert.Equal(t, types.AssetID(10), next)

	applied, err = reg.InitGenesis(nil, 99)
	require.NoError(t, err)
	assert.False(t, applied, "genesis is applied once")
	next, _ = reg.NextID()
	assert.Equal(t, types.AssetID(10), next)
}

func TestRegistry_InitGenesisRejectsBadAssets(t *testing.T) {
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)

	_, err = reg.InitGenesis([]GenesisAsset{{ID: 0, Symbol: "", Precision: 4, VSymbol: "v", VPrecision: 8}}, 3)
	assert.ErrorIs(t, err, ErrEmptySymbol)

	_, err = reg.InitGenesis([]GenesisAsset{{ID: 5, Symbol: "X", VSymbol: "vX"}}, 3)
	assert.Error(t, err)

	ok, err := reg.Exists(0)
	require.NoError(t, err)
	assert.False(t, ok, "rejected genesis writes nothing")
}

func TestRegistry_FindBySymbol(t *testing.T) {
	f := newFixture(t, nil)
	id, _, err := f.engine.Create("ABC", 6)
	require.NoError(t, err)
	other, _, err := f.engine.Create("ABC", 2)
	require.NoError(t, err)

	_, found, err := f.reg.FindBySymbol(alice, "ABC", 6)
	require.NoError(t, err)
	assert.False(t, found, "only assets in the account index are searched")

	require.NoError(t, f.engine.Issue(other, types.Token, alice, amt(1)))
	require.NoError(t, f.engine.Issue(id, types.VToken, alice, amt(1)))

	got, found, err := f.reg.FindBySymbol(alice, "ABC", 6)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, id, got)

	got, found, err = f.reg.FindBySymbol(alice, "ABC", 2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, other, got)

	_, found, err = f.reg.FindBySymbol(alice, "ABC", 3)
	require.NoError(t, err)
	assert.False(t, found)
}
