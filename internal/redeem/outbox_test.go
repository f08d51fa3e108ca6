package redeem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var _ asset.Redeemer = (*Outbox)(nil)

// record stages req on a fresh transaction and commits it.
func record(t *testing.T, o *Outbox, req asset.RedeemRequest) {
	t.Helper()
	txn := storage.NewTxn(o.db)
	require.NoError(t, o.OnRedeem(txn, req))
	require.NoError(t, txn.Commit())
}

func TestOutbox_RecordAndAck(t *testing.T) {
	o, err := NewOutbox(storage.NewMemory())
	require.NoError(t, err)

	req := asset.RedeemRequest{Asset: 1, TokenType: types.VToken, Account: types.Address{9}, Amount: types.NewAmount(5), ToName: "cold"}
	record(t, o, req)
	record(t, o, req)

	pending, err := o.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, uint64(1), pending[0].Seq)
	assert.Equal(t, uint64(2), pending[1].Seq)
	assert.Equal(t, "cold", pending[0].ToName)

	acked, err := o.Ack(1)
	require.NoError(t, err)
	assert.NotNil(t, acked.Acked)

	pending, err = o.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(2), pending[0].Seq)

	_, err = o.Ack(1)
	assert.ErrorIs(t, err, ErrAlreadyAcked)
	_, err = o.Ack(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutbox_UncommittedIsInvisible(t *testing.T) {
	o, err := NewOutbox(storage.NewMemory())
	require.NoError(t, err)

	txn := storage.NewTxn(o.db)
	require.NoError(t, o.OnRedeem(txn, asset.RedeemRequest{Amount: types.NewAmount(1)}))

	pending, err := o.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	// The abandoned sequence number is reused.
	record(t, o, asset.RedeemRequest{Amount: types.NewAmount(2)})
	pending, err = o.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(1), pending[0].Seq)
}

func TestOutbox_SeqSurvivesReopen(t *testing.T) {
	db := storage.NewMemory()
	o, err := NewOutbox(db)
	require.NoError(t, err)
	record(t, o, asset.RedeemRequest{Amount: types.NewAmount(1)})

	again, err := NewOutbox(db)
	require.NoError(t, err)
	record(t, again, asset.RedeemRequest{Amount: types.NewAmount(1)})

	pending, err := again.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, uint64(2), pending[1].Seq)
}

func TestOutbox_WiredIntoEngine(t *testing.T) {
	db := storage.NewMemory()
	o, err := NewOutbox(storage.NewPrefixDB(db, []byte("r/")))
	require.NoError(t, err)
	reg, err := asset.NewRegistry(storage.NewPrefixDB(db, []byte("a/")))
	require.NoError(t, err)
	eng := asset.NewEngine(reg, asset.EngineConfig{Redeemer: o})

	acct := types.Address{3}
	id, _, err := eng.Create("EOS", 4)
	require.NoError(t, err)
	require.NoError(t, eng.Issue(id, types.Token, acct, types.NewAmount(10)))
	require.NoError(t, eng.Redeem(id, types.Token, acct, types.NewAmount(4), "exchange"))

	pending, err := o.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, types.AssetEOS, pending[0].Asset)
	assert.Equal(t, types.NewAmount(4), pending[0].Amount)
	assert.Equal(t, acct, pending[0].Account)
}

// flakyDB fails every write once armed and has no atomic batch.
type flakyDB struct {
	storage.DB
	fail bool
}

func (f *flakyDB) Put(key, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.DB.Put(key, value)
}

func TestOutbox_FailedCommitLeavesNothingPending(t *testing.T) {
	db := &flakyDB{DB: storage.NewMemory()}
	o, err := NewOutbox(storage.NewPrefixDB(db, []byte("r/")))
	require.NoError(t, err)
	reg, err := asset.NewRegistry(storage.NewPrefixDB(db, []byte("a/")))
	require.NoError(t, err)
	eng := asset.NewEngine(reg, asset.EngineConfig{Redeemer: o})

	acct := types.Address{4}
	id, _, err := eng.Create("DOT", 4)
	require.NoError(t, err)
	require.NoError(t, eng.Issue(id, types.Token, acct, types.NewAmount(10)))

	db.fail = true
	require.Error(t, eng.Redeem(id, types.Token, acct, types.NewAmount(10), "cold"))
	db.fail = false

	pending, err := o.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending, "no redemption without the burn behind it")
	bal, err := eng.Ledger().BalanceU64(id, types.Token, acct)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)
}

func TestOutbox_ForeignDatabaseAbortsRedeem(t *testing.T) {
	o, err := NewOutbox(storage.NewMemory())
	require.NoError(t, err)
	reg, err := asset.NewRegistry(storage.NewMemory())
	require.NoError(t, err)
	eng := asset.NewEngine(reg, asset.EngineConfig{Redeemer: o})

	acct := types.Address{5}
	id, _, err := eng.Create("KSM", 4)
	require.NoError(t, err)
	require.NoError(t, eng.Issue(id, types.Token, acct, types.NewAmount(3)))

	assert.ErrorIs(t, eng.Redeem(id, types.Token, acct, types.NewAmount(1), ""), storage.ErrForeignDB)
	bal, err := eng.Ledger().BalanceU64(id, types.Token, acct)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), bal)
}
