package asset

import (
	"github.com/Klingon-tech/assetledger/internal/storage"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// PriceOracle supplies the conversion price used to weight cost and income.
// It is a total function: unknown assets price at zero.
type PriceOracle interface {
	PriceOf(id types.AssetID) types.Amount
}

// OracleFunc adapts a function to PriceOracle.
type OracleFunc func(id types.AssetID) types.Amount

// PriceOf calls f(id).
func (f OracleFunc) PriceOf(id types.AssetID) types.Amount { return f(id) }

// ZeroPrice is the oracle used when none is configured.
var ZeroPrice PriceOracle = OracleFunc(func(types.AssetID) types.Amount { return types.Amount{} })

// RedeemRequest is handed to the Redeemer before a redeem debits the balance.
type RedeemRequest struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	Account   types.Address   `json:"account"`
	Amount    types.Amount    `json:"amount"`
	ToName    string          `json:"to_name,omitempty"`
}

// Redeemer is notified of redemptions inside the redeem transition. Writes
// it stages on txn commit in the same batch as the debit, and an error
// aborts the redemption. The handler must not call back into the ledger.
type Redeemer interface {
	OnRedeem(txn *storage.Txn, req RedeemRequest) error
}

// RedeemerFunc adapts a function to Redeemer.
type RedeemerFunc func(txn *storage.Txn, req RedeemRequest) error

// OnRedeem calls f(txn, req).
func (f RedeemerFunc) OnRedeem(txn *storage.Txn, req RedeemRequest) error { return f(txn, req) }
