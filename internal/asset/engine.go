package asset

import (
	"fmt"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// EngineConfig wires the engine's collaborators. Nil fields fall back to a
// zero price, no redemption handler and a discarding event sink.
type EngineConfig struct {
	Oracle   PriceOracle
	Redeemer Redeemer
	Events   event.Sink
}

// Engine validates caller intents and applies them to the registry and
// ledger. Each call is one transition: all writes commit together or not at
// all, and events are emitted only after the commit.
type Engine struct {
	s        *store
	registry *Registry
	ledger   *Ledger
	oracle   PriceOracle
	redeemer Redeemer
	events   event.Sink
}

// NewEngine creates an engine over reg and a ledger sharing its storage.
func NewEngine(reg *Registry, cfg EngineConfig) *Engine {
	e := &Engine{
		s:        reg.s,
		registry: reg,
		ledger:   NewLedger(reg),
		oracle:   cfg.Oracle,
		redeemer: cfg.Redeemer,
		events:   cfg.Events,
	}
	if e.oracle == nil {
		e.oracle = ZeroPrice
	}
	if e.events == nil {
		e.events = event.Discard
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Ledger returns the engine's account ledger.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Create registers a new token pair.
func (e *Engine) Create(symbol string, precision uint16) (types.AssetID, types.TokenPair, error) {
	var (
		id   types.AssetID
		pair types.TokenPair
	)
	err := e.run(func(t *tx) error {
		var err error
		id, pair, err = create(t, symbol, precision)
		if err != nil {
			return err
		}
		t.emit(event.Event{Kind: event.KindCreated, Asset: id, Symbol: symbol, Precision: precision, Pair: &pair})
		return nil
	})
	if err != nil {
		return 0, types.TokenPair{}, err
	}
	log.Engine.Debug().Uint32("asset", uint32(id)).Str("symbol", symbol).Uint16("precision", precision).Msg("Asset created")
	return id, pair, nil
}

// Issue credits amount to the account at the current oracle price.
func (e *Engine) Issue(id types.AssetID, tt types.TokenType, to types.Address, amount types.Amount) error {
	if err := checkType(tt); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	err := e.run(func(t *tx) error {
		_, ok, err := t.pair(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %d", ErrTokenNotExist, id)
		}
		price := e.oracle.PriceOf(id)
		if err := credit(t, id, tt, to, amount, price); err != nil {
			return err
		}
		t.emit(event.Event{Kind: event.KindIssued, Asset: id, TokenType: tt, To: event.Addr(to), Amount: amount, Price: price})
		return nil
	})
	if err != nil {
		return err
	}
	log.Engine.Debug().Uint32("asset", uint32(id)).Stringer("variant", tt).Str("to", to.String()).Str("amount", amount.String()).Msg("Issued")
	return nil
}

// Transfer moves amount between accounts. Cost and income are not touched.
func (e *Engine) Transfer(id types.AssetID, tt types.TokenType, from, to types.Address, amount types.Amount) error {
	if err := checkType(tt); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	err := e.run(func(t *tx) error {
		if err := requireBalance(t, id, tt, from, amount); err != nil {
			return err
		}
		if err := transfer(t, id, tt, from, to, amount); err != nil {
			return err
		}
		t.emit(event.Event{Kind: event.KindTransferred, Asset: id, TokenType: tt, From: event.Addr(from), To: event.Addr(to), Amount: amount})
		return nil
	})
	if err != nil {
		return err
	}
	log.Engine.Debug().Uint32("asset", uint32(id)).Stringer("variant", tt).Str("from", from.String()).Str("to", to.String()).Str("amount", amount.String()).Msg("Transferred")
	return nil
}

// Destroy debits amount from the account at the current oracle price.
// A zero amount is accepted and only records the event.
func (e *Engine) Destroy(id types.AssetID, tt types.TokenType, from types.Address, amount types.Amount) error {
	if err := checkType(tt); err != nil {
		return err
	}
	err := e.run(func(t *tx) error {
		if err := requireBalance(t, id, tt, from, amount); err != nil {
			return err
		}
		price := e.oracle.PriceOf(id)
		if err := debit(t, id, tt, from, amount, price); err != nil {
			return err
		}
		t.emit(event.Event{Kind: event.KindDestroyed, Asset: id, TokenType: tt, From: event.Addr(from), Amount: amount, Price: price})
		return nil
	})
	if err != nil {
		return err
	}
	log.Engine.Debug().Uint32("asset", uint32(id)).Stringer("variant", tt).Str("from", from.String()).Str("amount", amount.String()).Msg("Destroyed")
	return nil
}

// Redeem notifies the redemption handler and then debits like Destroy. The
// handler's staged writes and the debit commit together. Without a handler
// it is exactly Destroy, apart from the event kind.
func (e *Engine) Redeem(id types.AssetID, tt types.TokenType, from types.Address, amount types.Amount, toName string) error {
	if err := checkType(tt); err != nil {
		return err
	}
	err := e.run(func(t *tx) error {
		if err := requireBalance(t, id, tt, from, amount); err != nil {
			return err
		}
		if e.redeemer != nil {
			req := RedeemRequest{Asset: id, TokenType: tt, Account: from, Amount: amount, ToName: toName}
			if err := e.redeemer.OnRedeem(t.txn, req); err != nil {
				return fmt.Errorf("redemption handler: %w", err)
			}
		}
		price := e.oracle.PriceOf(id)
		if err := debit(t, id, tt, from, amount, price); err != nil {
			return err
		}
		t.emit(event.Event{Kind: event.KindRedeemed, Asset: id, TokenType: tt, From: event.Addr(from), Amount: amount, Price: price, ToName: toName})
		return nil
	})
	if err != nil {
		return err
	}
	log.Engine.Debug().Uint32("asset", uint32(id)).Stringer("variant", tt).Str("from", from.String()).Str("amount", amount.String()).Str("to_name", toName).Msg("Redeemed")
	return nil
}

// run executes fn as one transition under the write lock. Events staged by
// fn are emitted after the commit, still under the lock so observers see
// them in commit order, with the operation's own event first.
func (e *Engine) run(fn func(t *tx) error) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	t := e.s.begin()
	if err := fn(t); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		log.Engine.Error().Err(err).Msg("Commit failed")
		return err
	}

	events := t.events
	if n := len(events); n > 1 {
		// The operation event is staged last; move it to the front.
		events = append([]event.Event{events[n-1]}, events[:n-1]...)
	}
	for _, ev := range events {
		e.events.Emit(ev)
	}
	return nil
}

func requireBalance(t *tx, id types.AssetID, tt types.TokenType, account types.Address, amount types.Amount) error {
	rec, err := t.account(id, tt, account)
	if err != nil {
		return err
	}
	if amount.Gt(rec.Balance) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, rec.Balance, amount)
	}
	return nil
}

func checkType(tt types.TokenType) error {
	if !tt.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTokenType, uint8(tt))
	}
	return nil
}
