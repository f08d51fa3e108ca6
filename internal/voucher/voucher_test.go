package voucher

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var (
	alice = types.Address{0xa1}
	bob   = types.Address{0xb0}
)

func newLedger(t *testing.T, total uint64) (*Ledger, *event.Bus) {
	t.Helper()
	bus := event.NewBus(64)
	l, err := New(storage.NewMemory(), types.NewAmount(total), bus)
	require.NoError(t, err)
	return l, bus
}

// checkPool asserts Remaining + sum(balances) == TotalSupplied.
func checkPool(t *testing.T, l *Ledger) {
	t.Helper()
	remaining, err := l.Remaining()
	require.NoError(t, err)
	entries, err := l.Accounts()
	require.NoError(t, err)
	sum := remaining
	for _, e := range entries {
		sum = sum.SaturatingAdd(e.Balance)
	}
	require.Equal(t, l.TotalSupplied(), sum)
}

func TestDefaultTotalSupply(t *testing.T) {
	want := types.NewAmount(80_000_000).SaturatingMul(types.NewAmount(1_000_000_000_000))
	assert.Equal(t, want, DefaultTotalSupply)
}

func TestLedger_IssueDestroyScenario(t *testing.T) {
	const total = 1_000_000
	l, bus := newLedger(t, total)

	require.NoError(t, l.Issue(alice, types.NewAmount(1000)))
	rem, err := l.Remaining()
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(total-1000), rem)
	bal, err := l.Balance(alice)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(1000), bal)
	checkPool(t, l)

	require.NoError(t, l.Destroy(alice, types.NewAmount(1000)))
	rem, _ = l.Remaining()
	assert.Equal(t, types.NewAmount(total), rem)
	bal, _ = l.Balance(alice)
	assert.True(t, bal.IsZero())
	checkPool(t, l)

	recent := bus.Recent(0, "")
	require.Len(t, recent, 2)
	assert.Equal(t, event.KindVoucherIssued, recent[0].Kind)
	assert.Equal(t, event.KindVoucherDestroyed, recent[1].Kind)
	assert.Equal(t, alice, *recent[1].From)
}

func TestLedger_IssueExceedsPool(t *testing.T) {
	l, bus := newLedger(t, 100)

	require.NoError(t, l.Issue(alice, types.NewAmount(100)), "the whole pool can be issued")
	err := l.Issue(bob, types.NewAmount(1))
	assert.ErrorIs(t, err, ErrInsufficientPool)

	bal, _ := l.Balance(bob)
	assert.True(t, bal.IsZero())
	assert.Len(t, bus.Recent(0, ""), 1, "failed issue emits nothing")
	checkPool(t, l)
}

func TestLedger_DestroyExceedsBalance(t *testing.T) {
	l, _ := newLedger(t, 100)
	require.NoError(t, l.Issue(alice, types.NewAmount(10)))

	assert.ErrorIs(t, l.Destroy(alice, types.NewAmount(11)), ErrInsufficientBalance)
	assert.ErrorIs(t, l.Destroy(bob, types.NewAmount(1)), ErrInsufficientBalance)

	bal, _ := l.Balance(alice)
	assert.Equal(t, types.NewAmount(10), bal)
	checkPool(t, l)
}

func TestLedger_DestroyNeverOverfillsPool(t *testing.T) {
	db := storage.NewMemory()
	l, err := New(db, types.NewAmount(100), nil)
	require.NoError(t, err)

	// Simulate a double credit: a balance exists while the pool is full.
	require.NoError(t, db.Put(balanceKey(alice), types.NewAmount(5).Bytes()))

	require.NoError(t, l.Destroy(alice, types.NewAmount(5)))
	rem, err := l.Remaining()
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(100), rem)
	bal, _ := l.Balance(alice)
	assert.True(t, bal.IsZero())
}

func TestLedger_Reset(t *testing.T) {
	l, _ := newLedger(t, 1000)
	require.NoError(t, l.Issue(alice, types.NewAmount(300)))
	require.NoError(t, l.Issue(bob, types.NewAmount(200)))
	require.NoError(t, l.Destroy(bob, types.NewAmount(200)))

	require.NoError(t, l.Reset())
	rem, _ := l.Remaining()
	assert.Equal(t, types.NewAmount(1000), rem)

	entries, err := l.Accounts()
	require.NoError(t, err)
	require.Len(t, entries, 2, "zeroed accounts stay enumerable")
	for _, e := range entries {
		assert.True(t, e.Balance.IsZero(), e.Account.String())
	}

	require.NoError(t, l.Reset(), "reset is idempotent")
	checkPool(t, l)
}

func TestLedger_ResetInChunks(t *testing.T) {
	old := resetChunk
	resetChunk = 3
	defer func() { resetChunk = old }()

	l, _ := newLedger(t, 1000)
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Issue(types.Address{byte(i + 1)}, types.NewAmount(7)))
	}
	require.NoError(t, l.Reset())

	entries, err := l.Accounts()
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for _, e := range entries {
		assert.True(t, e.Balance.IsZero(), e.Account.String())
	}
	checkPool(t, l)
}

func TestLedger_ResumesInterruptedReset(t *testing.T) {
	db := storage.NewMemory()
	l, err := New(db, types.NewAmount(100), nil)
	require.NoError(t, err)
	require.NoError(t, l.Issue(alice, types.NewAmount(40)))

	// A crash after the marker and part of the balances.
	require.NoError(t, db.Put(keyResetting, []byte{1}))

	again, err := New(db, types.NewAmount(100), nil)
	require.NoError(t, err)
	rem, _ := again.Remaining()
	assert.Equal(t, types.NewAmount(100), rem)
	bal, _ := again.Balance(alice)
	assert.True(t, bal.IsZero())
	ok, err := db.Has(keyResetting)
	require.NoError(t, err)
	assert.False(t, ok, "marker cleared once the reset completes")
	checkPool(t, again)
}

func TestLedger_ReopenKeepsState(t *testing.T) {
	db := storage.NewMemory()
	l, err := New(db, types.NewAmount(50), nil)
	require.NoError(t, err)
	require.NoError(t, l.Issue(alice, types.NewAmount(20)))

	again, err := New(db, types.NewAmount(50), nil)
	require.NoError(t, err)
	rem, _ := again.Remaining()
	assert.Equal(t, types.NewAmount(30), rem)
}

func TestLedger_RandomOpsKeepPoolInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	l, _ := newLedger(t, 10_000)
	accounts := []types.Address{alice, bob, {0xcc}}

	for i := 0; i < 500; i++ {
		a := accounts[rng.Intn(len(accounts))]
		n := types.NewAmount(uint64(rng.Intn(3000)))
		switch rng.Intn(10) {
		case 0:
			require.NoError(t, l.Reset())
		case 1, 2, 3, 4:
			err := l.Issue(a, n)
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientPool)
			}
		default:
			err := l.Destroy(a, n)
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientBalance)
			}
		}
		checkPool(t, l)
	}
}
