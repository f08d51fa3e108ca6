// Package voucher implements the fixed-supply voucher pool.
//
// Every voucher in circulation is either in the pool (Remaining) or held by
// an account, so Remaining + sum(balances) == TotalSupplied at all times.
package voucher

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// DefaultTotalSupply is 80,000,000 vouchers at 12 decimals.
var DefaultTotalSupply = types.MustParseAmount("80000000000000000000")

var (
	// ErrInsufficientPool is returned when an issue exceeds the remaining pool.
	ErrInsufficientPool = errors.New("insufficient voucher pool")
	// ErrInsufficientBalance is returned when a destroy exceeds the account balance.
	ErrInsufficientBalance = errors.New("insufficient voucher balance")
)

var (
	keyRemaining  = []byte("r")
	keyResetting  = []byte("x")  // present while a reset is in progress
	prefixBalance = []byte("b/") // b/<addr(20)> -> amount (16 bytes BE)
)

// resetChunk bounds the balance writes per batch so a reset stays within
// the backend's transaction size limit.
var resetChunk = 10000

func balanceKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixBalance...), addr[:]...)
}

// Entry is one account's voucher balance.
type Entry struct {
	Account types.Address `json:"account"`
	Balance types.Amount  `json:"balance"`
}

// Ledger tracks voucher balances against an immutable total supply.
type Ledger struct {
	mu     sync.RWMutex
	db     storage.DB
	total  types.Amount
	events event.Sink
}

// New opens the voucher ledger over db. A fresh database starts with the
// whole supply in the pool.
func New(db storage.DB, totalSupplied types.Amount, events event.Sink) (*Ledger, error) {
	if events == nil {
		events = event.Discard
	}
	l := &Ledger{db: db, total: totalSupplied, events: events}

	_, ok, err := storage.Lookup(db, keyRemaining)
	if err != nil {
		return nil, fmt.Errorf("voucher remaining: %w", err)
	}
	if !ok {
		if err := db.Put(keyRemaining, totalSupplied.Bytes()); err != nil {
			return nil, fmt.Errorf("voucher init: %w", err)
		}
	}

	// Finish a reset interrupted by a crash.
	resetting, err := db.Has(keyResetting)
	if err != nil {
		return nil, fmt.Errorf("voucher reset marker: %w", err)
	}
	if resetting {
		log.Voucher.Warn().Msg("Resuming interrupted voucher reset")
		if _, err := l.reset(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// TotalSupplied returns the fixed supply.
func (l *Ledger) TotalSupplied() types.Amount {
	return l.total
}

// Remaining returns the vouchers still in the pool.
func (l *Ledger) Remaining() (types.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return readAmount(storage.Lookup(l.db, keyRemaining))
}

// Balance returns the account's voucher balance, zero if never written.
func (l *Ledger) Balance(account types.Address) (types.Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return readAmount(storage.Lookup(l.db, balanceKey(account)))
}

// Accounts returns every account ever written, including zeroed ones, in
// address order.
func (l *Ledger) Accounts() ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry
	err := l.db.ForEach(prefixBalance, func(key, value []byte) error {
		var addr types.Address
		if len(key) != len(prefixBalance)+types.AddressSize {
			return nil // Malformed key, skip.
		}
		copy(addr[:], key[len(prefixBalance):])
		bal, err := types.AmountFromBytes(value)
		if err != nil {
			return fmt.Errorf("voucher balance %s: %w", addr, err)
		}
		out = append(out, Entry{Account: addr, Balance: bal})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Issue moves amount from the pool to the account.
func (l *Ledger) Issue(account types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := storage.NewTxn(l.db)
	remaining, err := readAmount(txn.Lookup(keyRemaining))
	if err != nil {
		return err
	}
	if amount.Gt(remaining) {
		return fmt.Errorf("%w: remaining %s, requested %s", ErrInsufficientPool, remaining, amount)
	}
	bal, err := readAmount(txn.Lookup(balanceKey(account)))
	if err != nil {
		return err
	}

	txn.Put(balanceKey(account), bal.SaturatingAdd(amount).Bytes())
	txn.Put(keyRemaining, remaining.SaturatingSub(amount).Bytes())
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("voucher issue: %w", err)
	}

	l.events.Emit(event.Event{Kind: event.KindVoucherIssued, To: event.Addr(account), Amount: amount})
	log.Voucher.Debug().Str("to", account.String()).Str("amount", amount.String()).Msg("Vouchers issued")
	return nil
}

// Destroy moves amount from the account back to the pool. The pool is never
// credited past the total supply.
func (l *Ledger) Destroy(account types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	txn := storage.NewTxn(l.db)
	bal, err := readAmount(txn.Lookup(balanceKey(account)))
	if err != nil {
		return err
	}
	if amount.Gt(bal) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, bal, amount)
	}
	remaining, err := readAmount(txn.Lookup(keyRemaining))
	if err != nil {
		return err
	}

	txn.Put(balanceKey(account), bal.SaturatingSub(amount).Bytes())
	if back, clamped := remaining.CheckedAdd(amount); !clamped && !back.Gt(l.total) {
		txn.Put(keyRemaining, back.Bytes())
	} else {
		log.Voucher.Warn().
			Str("remaining", remaining.String()).
			Str("amount", amount.String()).
			Msg("Voucher pool credit skipped, would exceed total supply")
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("voucher destroy: %w", err)
	}

	l.events.Emit(event.Event{Kind: event.KindVoucherDestroyed, From: event.Addr(account), Amount: amount})
	log.Voucher.Debug().Str("from", account.String()).Str("amount", amount.String()).Msg("Vouchers destroyed")
	return nil
}

// Reset refills the pool and zeroes every balance ever written. Keys are
// rewritten rather than deleted, so Accounts still lists them afterwards.
//
// Balances are zeroed in chunks. A marker written first and removed with the
// final pool refill lets New finish a reset that was interrupted.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, err := l.reset()
	if err != nil {
		return err
	}
	l.events.Emit(event.Event{Kind: event.KindVoucherReset, Amount: l.total})
	log.Voucher.Info().Int("accounts", accounts).Msg("Voucher ledger reset")
	return nil
}

func (l *Ledger) reset() (int, error) {
	if err := l.db.Put(keyResetting, []byte{1}); err != nil {
		return 0, fmt.Errorf("voucher reset marker: %w", err)
	}

	var keys [][]byte
	err := l.db.ForEach(prefixBalance, func(key, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("voucher reset scan: %w", err)
	}

	zero := types.Amount{}.Bytes()
	for start := 0; start < len(keys); start += resetChunk {
		end := start + resetChunk
		if end > len(keys) {
			end = len(keys)
		}
		batch := storage.NewBatch(l.db)
		for _, key := range keys[start:end] {
			if err := batch.Put(key, zero); err != nil {
				return 0, err
			}
		}
		if err := batch.Commit(); err != nil {
			return 0, fmt.Errorf("voucher reset: %w", err)
		}
	}

	batch := storage.NewBatch(l.db)
	if err := batch.Put(keyRemaining, l.total.Bytes()); err != nil {
		return 0, err
	}
	if err := batch.Delete(keyResetting); err != nil {
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("voucher reset: %w", err)
	}
	return len(keys), nil
}

func readAmount(data []byte, ok bool, err error) (types.Amount, error) {
	if err != nil {
		return types.Amount{}, fmt.Errorf("voucher read: %w", err)
	}
	if !ok {
		return types.Amount{}, nil
	}
	return types.AmountFromBytes(data)
}
