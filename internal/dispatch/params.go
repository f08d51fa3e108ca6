package dispatch

import (
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// CreateParams registers a token pair.
type CreateParams struct {
	Symbol    string `json:"symbol"`
	Precision uint16 `json:"precision"`
}

// CreateResult is returned by Create.
type CreateResult struct {
	Asset types.AssetID   `json:"asset_id"`
	Pair  types.TokenPair `json:"pair"`
}

// IssueParams credits an account.
type IssueParams struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	To        string          `json:"to"`
	Amount    types.Amount    `json:"amount"`
}

// TransferParams moves balance from the caller to another account.
type TransferParams struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	To        string          `json:"to"`
	Amount    types.Amount    `json:"amount"`
}

// DestroyParams burns the caller's balance.
type DestroyParams struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	Amount    types.Amount    `json:"amount"`
}

// RedeemParams burns the caller's balance and queues a redemption.
type RedeemParams struct {
	Asset     types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	Amount    types.Amount    `json:"amount"`
	ToName    string          `json:"to_name,omitempty"`
}

// PriceParams sets a price by asset id or by well-known symbol.
type PriceParams struct {
	Asset  *types.AssetID `json:"asset_id,omitempty"`
	Symbol string         `json:"symbol,omitempty"`
	Price  types.Amount   `json:"price"`
}

// VoucherParams targets one account's voucher balance.
type VoucherParams struct {
	Account string       `json:"account"`
	Amount  types.Amount `json:"amount"`
}

// AckParams acknowledges a redemption request.
type AckParams struct {
	Seq uint64 `json:"seq"`
}
