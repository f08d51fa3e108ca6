package asset

import (
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// Holding is one (asset, variant) record held by an account.
type Holding struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	types.AccountAsset
}

// Ledger stores balance, cost and income per (asset, variant, account).
// Credits and debits also move the variant's total supply in the Registry.
//
// The arithmetic saturates. A clamp means a caller skipped a precondition
// check, so every clamp is logged at warn level.
type Ledger struct {
	s *store
}

// NewLedger returns the ledger sharing reg's storage and lock.
func NewLedger(reg *Registry) *Ledger {
	return &Ledger{s: reg.s}
}

// Get returns the record for the key, or the zero record if never written.
func (l *Ledger) Get(id types.AssetID, tt types.TokenType, account types.Address) (types.AccountAsset, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.s.begin().account(id, tt, account)
}

// BalanceU64 returns the balance clamped to the uint64 range.
func (l *Ledger) BalanceU64(id types.AssetID, tt types.TokenType, account types.Address) (uint64, error) {
	rec, err := l.Get(id, tt, account)
	if err != nil {
		return 0, err
	}
	return rec.Balance.Uint64(), nil
}

// AssetIDs returns the account's asset index in registration order.
func (l *Ledger) AssetIDs(account types.Address) ([]types.AssetID, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return decodeIndex(storage.Lookup(l.s.db, indexKey(account)))
}

// Holdings returns every written record of the account, for each asset in
// its index and both variants.
func (l *Ledger) Holdings(account types.Address) ([]Holding, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	t := l.s.begin()
	ids, err := t.index(account)
	if err != nil {
		return nil, err
	}
	var out []Holding
	for _, id := range ids {
		for _, tt := range []types.TokenType{types.Token, types.VToken} {
			data, ok, err := storage.Lookup(l.s.db, accountKey(id, tt, account))
			if err != nil {
				return nil, fmt.Errorf("holding get: %w", err)
			}
			if !ok {
				continue
			}
			var rec types.AccountAsset
			if err := json.Unmarshal(data, &rec); err != nil {
				return nil, fmt.Errorf("holding unmarshal: %w", err)
			}
			out = append(out, Holding{Asset: id, TokenType: tt, AccountAsset: rec})
		}
	}
	return out, nil
}

// Credit adds amount to the balance and amount*price to the cost, and grows
// the variant's total supply.
func (l *Ledger) Credit(id types.AssetID, tt types.TokenType, account types.Address, amount, price types.Amount) error {
	return l.apply(func(t *tx) error { return credit(t, id, tt, account, amount, price) })
}

// Debit removes amount from the balance, adds amount*price to the income and
// shrinks the variant's total supply.
func (l *Ledger) Debit(id types.AssetID, tt types.TokenType, account types.Address, amount, price types.Amount) error {
	return l.apply(func(t *tx) error { return debit(t, id, tt, account, amount, price) })
}

// Transfer moves balance only. Cost, income and supply are untouched.
func (l *Ledger) Transfer(id types.AssetID, tt types.TokenType, from, to types.Address, amount types.Amount) error {
	return l.apply(func(t *tx) error { return transfer(t, id, tt, from, to, amount) })
}

func (l *Ledger) apply(fn func(t *tx) error) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	t := l.s.begin()
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func credit(t *tx, id types.AssetID, tt types.TokenType, account types.Address, amount, price types.Amount) error {
	rec, err := t.account(id, tt, account)
	if err != nil {
		return err
	}
	weighted, mulClamped := amount.CheckedMul(price)
	var balClamped, costClamped bool
	rec.Balance, balClamped = rec.Balance.CheckedAdd(amount)
	rec.Cost, costClamped = rec.Cost.CheckedAdd(weighted)
	if balClamped || costClamped || mulClamped {
		warnClamp("credit", id, tt, account, amount)
	}
	if err := t.putAccount(id, tt, account, rec); err != nil {
		return err
	}
	if err := t.register(id, account); err != nil {
		return err
	}
	return adjustSupply(t, id, tt, amount, true)
}

func debit(t *tx, id types.AssetID, tt types.TokenType, account types.Address, amount, price types.Amount) error {
	// A zero debit changes nothing; records are only created by credits.
	if amount.IsZero() {
		return nil
	}
	rec, err := t.account(id, tt, account)
	if err != nil {
		return err
	}
	weighted, mulClamped := amount.CheckedMul(price)
	var balClamped, incClamped bool
	rec.Balance, balClamped = rec.Balance.CheckedSub(amount)
	rec.Income, incClamped = rec.Income.CheckedAdd(weighted)
	if balClamped || incClamped || mulClamped {
		warnClamp("debit", id, tt, account, amount)
	}
	if err := t.putAccount(id, tt, account, rec); err != nil {
		return err
	}
	return adjustSupply(t, id, tt, amount, false)
}

func transfer(t *tx, id types.AssetID, tt types.TokenType, from, to types.Address, amount types.Amount) error {
	src, err := t.account(id, tt, from)
	if err != nil {
		return err
	}
	var clamped bool
	src.Balance, clamped = src.Balance.CheckedSub(amount)
	if clamped {
		warnClamp("transfer debit", id, tt, from, amount)
	}
	if err := t.putAccount(id, tt, from, src); err != nil {
		return err
	}

	// Read after the staged debit so a self-transfer nets to zero.
	dst, err := t.account(id, tt, to)
	if err != nil {
		return err
	}
	dst.Balance, clamped = dst.Balance.CheckedAdd(amount)
	if clamped {
		warnClamp("transfer credit", id, tt, to, amount)
	}
	if err := t.putAccount(id, tt, to, dst); err != nil {
		return err
	}
	return t.register(id, to)
}

// adjustSupply moves the variant's total supply. Unregistered assets have
// no pair to update.
func adjustSupply(t *tx, id types.AssetID, tt types.TokenType, amount types.Amount, grow bool) error {
	pair, ok, err := t.pair(id)
	if err != nil || !ok {
		return err
	}
	supply := pair.Variant(tt).TotalSupply
	var clamped bool
	if grow {
		supply, clamped = supply.CheckedAdd(amount)
	} else {
		supply, clamped = supply.CheckedSub(amount)
	}
	if clamped {
		log.Ledger.Warn().
			Uint32("asset", uint32(id)).
			Stringer("variant", tt).
			Str("amount", amount.String()).
			Bool("grow", grow).
			Msg("Total supply clamped")
	}
	pair.SetSupply(tt, supply)
	return t.putPair(id, pair)
}

func warnClamp(op string, id types.AssetID, tt types.TokenType, account types.Address, amount types.Amount) {
	log.Ledger.Warn().
		Str("op", op).
		Uint32("asset", uint32(id)).
		Stringer("variant", tt).
		Str("account", account.String()).
		Str("amount", amount.String()).
		Msg("Account asset clamped")
}
