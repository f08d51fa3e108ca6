// Package event carries ledger mutation notifications to observers.
package event

import (
	"time"

	"github.com/Klingon-tech/assetledger/pkg/types"
)

// Kind names what happened. It doubles as the bus topic.
type Kind string

// Event kinds, one per successful mutation.
const (
	KindCreated             Kind = "asset.created"
	KindIssued              Kind = "asset.issued"
	KindTransferred         Kind = "asset.transferred"
	KindDestroyed           Kind = "asset.destroyed"
	KindRedeemed            Kind = "asset.redeemed"
	KindAccountAssetCreated Kind = "asset.account_created"
	KindPriceSet            Kind = "price.set"
	KindVoucherIssued       Kind = "voucher.issued"
	KindVoucherDestroyed    Kind = "voucher.destroyed"
	KindVoucherReset        Kind = "voucher.reset"
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{
	KindCreated, KindIssued, KindTransferred, KindDestroyed, KindRedeemed,
	KindAccountAssetCreated, KindPriceSet,
	KindVoucherIssued, KindVoucherDestroyed, KindVoucherReset,
}

// Event describes one committed mutation. Fields that do not apply to a
// kind are left at their zero value (nil for the account pointers).
type Event struct {
	Seq       uint64           `json:"seq"`
	Time      time.Time        `json:"time"`
	Kind      Kind             `json:"kind"`
	Asset     types.AssetID    `json:"asset_id"`
	TokenType types.TokenType  `json:"token_type"`
	Symbol    string           `json:"symbol,omitempty"`
	Precision uint16           `json:"precision,omitempty"`
	From      *types.Address   `json:"from,omitempty"`
	To        *types.Address   `json:"to,omitempty"`
	Amount    types.Amount     `json:"amount"`
	Price     types.Amount     `json:"price"`
	ToName    string           `json:"to_name,omitempty"`
	Pair      *types.TokenPair `json:"pair,omitempty"`
}

// Sink receives events after the mutation that produced them has committed.
type Sink interface {
	Emit(Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Addr returns a pointer to a copy of a, for the optional account fields.
func Addr(a types.Address) *types.Address {
	return &a
}
