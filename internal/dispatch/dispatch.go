// Package dispatch is the entry point for state-changing calls. It checks
// the caller's authority and resolves account references, then hands the
// call to the engine, voucher ledger, price table or redemption outbox.
package dispatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/auth"
	"github.com/Klingon-tech/assetledger/internal/metrics"
	"github.com/Klingon-tech/assetledger/internal/oracle"
	"github.com/Klingon-tech/assetledger/internal/redeem"
	"github.com/Klingon-tech/assetledger/internal/voucher"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// ErrNoOutbox is returned by AckRedeem when no outbox is configured.
var ErrNoOutbox = errors.New("redemption outbox not configured")

// rejections are caller errors, counted apart from internal failures.
var rejections = []error{
	auth.ErrUnauthorized, auth.ErrUnresolved,
	asset.ErrEmptySymbol, asset.ErrSymbolTooLong, asset.ErrInvalidPrecision,
	asset.ErrTokenNotExist, asset.ErrZeroAmount, asset.ErrInsufficientBalance,
	asset.ErrInvalidTokenType,
	voucher.ErrInsufficientPool, voucher.ErrInsufficientBalance,
	oracle.ErrUnknownSymbol,
	redeem.ErrNotFound, redeem.ErrAlreadyAcked,
	ErrNoOutbox,
}

// IsRejection reports whether err is a caller error rather than a failure
// of the node.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// Config wires the dispatcher. Outbox and Metrics are optional.
type Config struct {
	Engine   *asset.Engine
	Vouchers *voucher.Ledger
	Prices   *oracle.Table
	Outbox   *redeem.Outbox
	Resolver *auth.Resolver
	Metrics  *metrics.Metrics
}

// Dispatcher applies authorized calls.
type Dispatcher struct {
	engine   *asset.Engine
	vouchers *voucher.Ledger
	prices   *oracle.Table
	outbox   *redeem.Outbox
	resolver *auth.Resolver
	metrics  *metrics.Metrics
}

// New creates a dispatcher.
func New(cfg Config) *Dispatcher {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = auth.NewResolver(nil)
	}
	return &Dispatcher{
		engine:   cfg.Engine,
		vouchers: cfg.Vouchers,
		prices:   cfg.Prices,
		outbox:   cfg.Outbox,
		resolver: resolver,
		metrics:  cfg.Metrics,
	}
}

// Resolve turns an account reference into an address.
func (d *Dispatcher) Resolve(ref string) (types.Address, error) {
	return d.resolver.Resolve(ref)
}

func (d *Dispatcher) observe(op string, start time.Time, err error) {
	if d.metrics != nil {
		d.metrics.Observe(op, start, err, rejections...)
	}
}

// Create registers a token pair. Root only.
func (d *Dispatcher) Create(o auth.Origin, p CreateParams) (res CreateResult, err error) {
	defer func(start time.Time) { d.observe("create", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return CreateResult{}, err
	}
	res.Asset, res.Pair, err = d.engine.Create(p.Symbol, p.Precision)
	if err != nil {
		return CreateResult{}, err
	}
	if d.metrics != nil {
		if entries, lerr := d.engine.Registry().List(); lerr == nil {
			d.metrics.SetAssets(len(entries))
		}
	}
	return res, nil
}

// Issue credits the resolved target. Root only.
func (d *Dispatcher) Issue(o auth.Origin, p IssueParams) (err error) {
	defer func(start time.Time) { d.observe("issue", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return err
	}
	to, err := d.resolver.Resolve(p.To)
	if err != nil {
		return err
	}
	return d.engine.Issue(p.Asset, p.TokenType, to, p.Amount)
}

// Transfer moves the caller's balance to the resolved target.
func (d *Dispatcher) Transfer(o auth.Origin, p TransferParams) (err error) {
	defer func(start time.Time) { d.observe("transfer", start, err) }(time.Now())
	from, err := auth.RequireSigned(o)
	if err != nil {
		return err
	}
	to, err := d.resolver.Resolve(p.To)
	if err != nil {
		return err
	}
	return d.engine.Transfer(p.Asset, p.TokenType, from, to, p.Amount)
}

// Destroy burns the caller's balance.
func (d *Dispatcher) Destroy(o auth.Origin, p DestroyParams) (err error) {
	defer func(start time.Time) { d.observe("destroy", start, err) }(time.Now())
	from, err := auth.RequireSigned(o)
	if err != nil {
		return err
	}
	return d.engine.Destroy(p.Asset, p.TokenType, from, p.Amount)
}

// Redeem burns the caller's balance and notifies the redemption handler.
func (d *Dispatcher) Redeem(o auth.Origin, p RedeemParams) (err error) {
	defer func(start time.Time) { d.observe("redeem", start, err) }(time.Now())
	from, err := auth.RequireSigned(o)
	if err != nil {
		return err
	}
	return d.engine.Redeem(p.Asset, p.TokenType, from, p.Amount, p.ToName)
}

// SetPrice updates the oracle. Root only. An asset id wins over a symbol.
func (d *Dispatcher) SetPrice(o auth.Origin, p PriceParams) (id types.AssetID, err error) {
	defer func(start time.Time) { d.observe("price_set", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return 0, err
	}
	if p.Asset != nil {
		return *p.Asset, d.prices.Set(*p.Asset, p.Price)
	}
	return d.prices.SetBySymbol(p.Symbol, p.Price)
}

// VoucherIssue moves vouchers from the pool to the resolved account. Root only.
func (d *Dispatcher) VoucherIssue(o auth.Origin, p VoucherParams) (err error) {
	defer func(start time.Time) { d.observe("voucher_issue", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return err
	}
	acct, err := d.resolver.Resolve(p.Account)
	if err != nil {
		return err
	}
	if err = d.vouchers.Issue(acct, p.Amount); err != nil {
		return err
	}
	d.updatePool()
	return nil
}

// VoucherDestroy returns vouchers from the resolved account to the pool. Root only.
func (d *Dispatcher) VoucherDestroy(o auth.Origin, p VoucherParams) (err error) {
	defer func(start time.Time) { d.observe("voucher_destroy", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return err
	}
	acct, err := d.resolver.Resolve(p.Account)
	if err != nil {
		return err
	}
	if err = d.vouchers.Destroy(acct, p.Amount); err != nil {
		return err
	}
	d.updatePool()
	return nil
}

// VoucherReset refills the pool and zeroes every balance. Root only.
func (d *Dispatcher) VoucherReset(o auth.Origin) (err error) {
	defer func(start time.Time) { d.observe("voucher_reset", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return err
	}
	if err = d.vouchers.Reset(); err != nil {
		return err
	}
	d.updatePool()
	return nil
}

// AckRedeem marks a queued redemption as settled. Root only.
func (d *Dispatcher) AckRedeem(o auth.Origin, p AckParams) (req redeem.Request, err error) {
	defer func(start time.Time) { d.observe("redeem_ack", start, err) }(time.Now())
	if err = auth.RequireRoot(o); err != nil {
		return redeem.Request{}, err
	}
	if d.outbox == nil {
		return redeem.Request{}, ErrNoOutbox
	}
	return d.outbox.Ack(p.Seq)
}

func (d *Dispatcher) updatePool() {
	if d.metrics == nil {
		return
	}
	if rem, err := d.vouchers.Remaining(); err == nil {
		d.metrics.SetVoucherRemaining(rem)
	}
}

// String describes the dispatcher for logs.
func (d *Dispatcher) String() string {
	return fmt.Sprintf("dispatcher(outbox=%t, metrics=%t)", d.outbox != nil, d.metrics != nil)
}
