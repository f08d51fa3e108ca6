package rpc

import (
	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/voucher"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeUnauthorized   = -32001
	CodeInsufficient   = -32002
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// AssetParam is used by endpoints that take a single asset id.
type AssetParam struct {
	AssetID types.AssetID `json:"asset_id"`
}

// AccountParam is used by endpoints that take one account reference
// (bech32, hex or @alias).
type AccountParam struct {
	Account string `json:"account"`
}

// AccountAssetParam is used by asset_getAccountAsset.
type AccountAssetParam struct {
	AssetID   types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	Account   string          `json:"account"`
}

// FindSymbolParam is used by asset_findBySymbol.
type FindSymbolParam struct {
	Account   string `json:"account"`
	Symbol    string `json:"symbol"`
	Precision uint16 `json:"precision"`
}

// PriceParam is used by price_get. A missing asset id lists every price.
type PriceParam struct {
	AssetID *types.AssetID `json:"asset_id,omitempty"`
}

// EventsParam is used by events_recent.
type EventsParam struct {
	Limit int    `json:"limit,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// NodeInfoResult is returned by node_getInfo.
type NodeInfoResult struct {
	Version          string          `json:"version"`
	Network          string          `json:"network"`
	ChainID          string          `json:"chain_id"`
	ChainName        string          `json:"chain_name"`
	GenesisHash      string          `json:"genesis_hash"`
	Assets           int             `json:"assets"`
	NextAssetID      types.AssetID   `json:"next_asset_id"`
	VoucherTotal     types.Amount    `json:"voucher_total_supply"`
	VoucherRemaining types.Amount    `json:"voucher_remaining"`
	LastEventSeq     uint64          `json:"last_event_seq"`
	RootAccounts     []types.Address `json:"root_accounts"`
}

// TokenResult is returned by asset_getToken.
type TokenResult struct {
	AssetID types.AssetID   `json:"asset_id"`
	Pair    types.TokenPair `json:"pair"`
}

// AccountAssetResult is returned by asset_getAccountAsset.
type AccountAssetResult struct {
	AssetID   types.AssetID   `json:"asset_id"`
	TokenType types.TokenType `json:"token_type"`
	Account   types.Address   `json:"account"`
	types.AccountAsset
}

// HoldingsResult is returned by asset_getHoldings.
type HoldingsResult struct {
	Account  types.Address   `json:"account"`
	Holdings []asset.Holding `json:"holdings"`
}

// FindSymbolResult is returned by asset_findBySymbol.
type FindSymbolResult struct {
	Found   bool          `json:"found"`
	AssetID types.AssetID `json:"asset_id"`
}

// PriceResult is one asset's price.
type PriceResult struct {
	AssetID types.AssetID `json:"asset_id"`
	Price   types.Amount  `json:"price"`
}

// VoucherBalanceResult is returned by voucher_getBalance.
type VoucherBalanceResult struct {
	Account types.Address `json:"account"`
	Balance types.Amount  `json:"balance"`
}

// VoucherInfoResult is returned by voucher_getInfo.
type VoucherInfoResult struct {
	TotalSupplied types.Amount    `json:"total_supplied"`
	Remaining     types.Amount    `json:"remaining"`
	Accounts      []voucher.Entry `json:"accounts"`
}

// EventsResult is returned by events_recent.
type EventsResult struct {
	LastSeq uint64        `json:"last_seq"`
	Events  []event.Event `json:"events"`
}

// NonceResult is returned by auth_getNonce. Next is the nonce the account
// must sign its next call with.
type NonceResult struct {
	Account types.Address `json:"account"`
	Nonce   uint64        `json:"nonce"`
	Next    uint64        `json:"next"`
	Root    bool          `json:"root"`
}

// SubmitResult acknowledges a signed call that returns nothing else.
type SubmitResult struct {
	Method string        `json:"method"`
	Caller types.Address `json:"caller"`
	Nonce  uint64        `json:"nonce"`
}
