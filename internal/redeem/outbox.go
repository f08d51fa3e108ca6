// Package redeem records redemption requests for an off-ledger settlement
// process to pick up and acknowledge.
package redeem

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/log"
	"github.com/Klingon-tech/assetledger/internal/storage"
)

var (
	// ErrNotFound is returned when acknowledging an unknown request.
	ErrNotFound = errors.New("redemption request not found")
	// ErrAlreadyAcked is returned when acknowledging a request twice.
	ErrAlreadyAcked = errors.New("redemption request already acknowledged")
)

var (
	keySeq        = []byte("n")
	prefixRequest = []byte("r/") // r/<seq(8)> -> Request JSON
)

func requestKey(seq uint64) []byte {
	k := make([]byte, len(prefixRequest)+8)
	copy(k, prefixRequest)
	binary.BigEndian.PutUint64(k[len(prefixRequest):], seq)
	return k
}

// Request is a persisted redemption.
type Request struct {
	Seq uint64 `json:"seq"`
	asset.RedeemRequest
	Created time.Time  `json:"created"`
	Acked   *time.Time `json:"acked,omitempty"`
}

// Outbox persists every redemption it is notified of. It implements
// asset.Redeemer; requests are staged by the redeem transition and become
// visible only when it commits.
type Outbox struct {
	mu  sync.Mutex
	db  storage.DB
	now func() time.Time
}

// NewOutbox opens the outbox over db.
func NewOutbox(db storage.DB) (*Outbox, error) {
	if _, _, err := storage.Lookup(db, keySeq); err != nil {
		return nil, fmt.Errorf("redeem seq: %w", err)
	}
	return &Outbox{db: db, now: time.Now}, nil
}

// OnRedeem stages req in the outbox namespace of txn, so the request and
// the debit behind it commit in one batch. The engine's lock serializes
// calls, which keeps sequence numbers unique.
func (o *Outbox) OnRedeem(txn *storage.Txn, req asset.RedeemRequest) error {
	view, err := txn.Join(o.db)
	if err != nil {
		return fmt.Errorf("redeem outbox: %w", err)
	}
	data, ok, err := view.Lookup(keySeq)
	if err != nil {
		return fmt.Errorf("redeem seq: %w", err)
	}
	var seq uint64
	if ok && len(data) == 8 {
		seq = binary.BigEndian.Uint64(data)
	}
	seq++

	r := Request{Seq: seq, RedeemRequest: req, Created: o.now().UTC()}
	if data, err = json.Marshal(r); err != nil {
		return fmt.Errorf("redeem marshal: %w", err)
	}
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	view.Put(requestKey(seq), data)
	view.Put(keySeq, seqBuf[:])

	txn.OnCommit(func() {
		log.Redeem.Info().
			Uint64("seq", seq).
			Uint32("asset", uint32(req.Asset)).
			Str("account", req.Account.String()).
			Str("amount", req.Amount.String()).
			Str("to_name", req.ToName).
			Msg("Redemption recorded")
	})
	return nil
}

// Pending returns the unacknowledged requests, oldest first.
func (o *Outbox) Pending() ([]Request, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []Request
	err := o.db.ForEach(prefixRequest, func(_, value []byte) error {
		var r Request
		if err := json.Unmarshal(value, &r); err != nil {
			return fmt.Errorf("redeem unmarshal: %w", err)
		}
		if r.Acked == nil {
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ack marks a request as settled.
func (o *Outbox) Ack(seq uint64) (Request, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, ok, err := storage.Lookup(o.db, requestKey(seq))
	if err != nil {
		return Request{}, fmt.Errorf("redeem get: %w", err)
	}
	if !ok {
		return Request{}, fmt.Errorf("%w: %d", ErrNotFound, seq)
	}
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("redeem unmarshal: %w", err)
	}
	if r.Acked != nil {
		return Request{}, fmt.Errorf("%w: %d", ErrAlreadyAcked, seq)
	}
	now := o.now().UTC()
	r.Acked = &now

	if data, err = json.Marshal(r); err != nil {
		return Request{}, fmt.Errorf("redeem marshal: %w", err)
	}
	if err := o.db.Put(requestKey(seq), data); err != nil {
		return Request{}, fmt.Errorf("redeem ack: %w", err)
	}
	log.Redeem.Info().Uint64("seq", seq).Msg("Redemption acknowledged")
	return r, nil
}
