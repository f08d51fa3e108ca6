package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

func newLedger(t *testing.T) (*Registry, *Ledger, types.AssetID) {
	t.Helper()
	reg, err := NewRegistry(storage.NewMemory())
	require.NoError(t, err)
	id, _, err := reg.Create("TKN", 8)
	require.NoError(t, err)
	return reg, NewLedger(reg), id
}

func supply(t *testing.T, reg *Registry, id types.AssetID, tt types.TokenType) types.Amount {
	t.Helper()
	p, err := reg.Lookup(id)
	require.NoError(t, err)
	return p.Variant(tt).TotalSupply
}

func TestLedger_GetUnwritten(t *testing.T) {
	_, l, id := newLedger(t)
	rec, err := l.Get(id, types.Token, alice)
	require.NoError(t, err)
	assert.Equal(t, types.AccountAsset{}, rec)
}

func TestLedger_CreditDebit(t *testing.T) {
	reg, l, id := newLedger(t)

	require.NoError(t, l.Credit(id, types.Token, alice, amt(10), amt(3)))
	require.NoError(t, l.Credit(id, types.Token, alice, amt(5), amt(4)))

	rec, err := l.Get(id, types.Token, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(15), rec.Balance)
	assert.Equal(t, amt(50), rec.Cost)
	assert.True(t, rec.Income.IsZero())
	assert.Equal(t, amt(15), supply(t, reg, id, types.Token))
	assert.True(t, supply(t, reg, id, types.VToken).IsZero(), "variants are independent")

	require.NoError(t, l.Debit(id, types.Token, alice, amt(6), amt(7)))
	rec, err = l.Get(id, types.Token, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(9), rec.Balance)
	assert.Equal(t, amt(50), rec.Cost, "debit leaves cost alone")
	assert.Equal(t, amt(42), rec.Income)
	assert.Equal(t, amt(9), supply(t, reg, id, types.Token))
}

func TestLedger_DebitClampsAtZero(t *testing.T) {
	reg, l, id := newLedger(t)
	require.NoError(t, l.Credit(id, types.VToken, alice, amt(3), amt(0)))

	require.NoError(t, l.Debit(id, types.VToken, alice, amt(10), amt(1)))

	rec, err := l.Get(id, types.VToken, alice)
	require.NoError(t, err)
	assert.True(t, rec.Balance.IsZero())
	assert.Equal(t, amt(10), rec.Income)
	assert.True(t, supply(t, reg, id, types.VToken).IsZero())
}

func TestLedger_CreditSaturates(t *testing.T) {
	_, l, id := newLedger(t)
	max := types.MaxAmount()

	require.NoError(t, l.Credit(id, types.Token, alice, max, amt(2)))
	require.NoError(t, l.Credit(id, types.Token, alice, amt(1), amt(1)))

	rec, err := l.Get(id, types.Token, alice)
	require.NoError(t, err)
	assert.Equal(t, max, rec.Balance)
	assert.Equal(t, max, rec.Cost)
}

func TestLedger_TransferMovesBalanceOnly(t *testing.T) {
	reg, l, id := newLedger(t)
	require.NoError(t, l.Credit(id, types.Token, alice, amt(100), amt(2)))

	require.NoError(t, l.Transfer(id, types.Token, alice, bob, amt(40)))

	a, err := l.Get(id, types.Token, alice)
	require.NoError(t, err)
	b, err := l.Get(id, types.Token, bob)
	require.NoError(t, err)
	assert.Equal(t, amt(60), a.Balance)
	assert.Equal(t, amt(200), a.Cost)
	assert.Equal(t, amt(40), b.Balance)
	assert.True(t, b.Cost.IsZero())
	assert.True(t, b.Income.IsZero())
	assert.Equal(t, amt(100), supply(t, reg, id, types.Token))

	ids, err := l.AssetIDs(bob)
	require.NoError(t, err)
	assert.Equal(t, []types.AssetID{id}, ids)
}

func TestLedger_SelfTransfer(t *testing.T) {
	_, l, id := newLedger(t)
	require.NoError(t, l.Credit(id, types.Token, alice, amt(7), amt(0)))
	require.NoError(t, l.Transfer(id, types.Token, alice, alice, amt(7)))

	rec, err := l.Get(id, types.Token, alice)
	require.NoError(t, err)
	assert.Equal(t, amt(7), rec.Balance)
}

func TestLedger_IndexHasNoDuplicates(t *testing.T) {
	reg, l, id := newLedger(t)
	other, _, err := reg.Create("OTH", 1)
	require.NoError(t, err)

	require.NoError(t, l.Credit(id, types.Token, alice, amt(1), amt(0)))
	require.NoError(t, l.Credit(id, types.VToken, alice, amt(1), amt(0)))
	require.NoError(t, l.Credit(other, types.Token, alice, amt(1), amt(0)))
	require.NoError(t, l.Credit(id, types.Token, alice, amt(1), amt(0)))

	ids, err := l.AssetIDs(alice)
	require.NoError(t, err)
	assert.Equal(t, []types.AssetID{id, other}, ids)
}

func TestLedger_HoldingsAndBalanceU64(t *testing.T) {
	_, l, id := newLedger(t)
	require.NoError(t, l.Credit(id, types.Token, alice, amt(5), amt(1)))
	require.NoError(t, l.Credit(id, types.VToken, alice, types.MaxAmount(), amt(0)))

	holdings, err := l.Holdings(alice)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, types.Token, holdings[0].TokenType)
	assert.Equal(t, amt(5), holdings[0].Balance)
	assert.Equal(t, types.VToken, holdings[1].TokenType)

	b, err := l.BalanceU64(id, types.VToken, alice)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), b)

	none, err := l.Holdings(carol)
	require.NoError(t, err)
	assert.Empty(t, none)
}
