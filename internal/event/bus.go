package event

import (
	"sync"
	"sync/atomic"
	"time"

	evbus "github.com/asaskevich/EventBus"
)

// TopicAll receives every event regardless of kind.
const TopicAll = "*"

// DefaultHistory is the number of events kept for Recent when no size is given.
const DefaultHistory = 1024

// Bus fans events out to subscribers and keeps a bounded history.
// Handlers run synchronously on the emitting goroutine and must not call
// back into the ledger.
type Bus struct {
	bus evbus.Bus
	seq atomic.Uint64
	now func() time.Time

	mu      sync.RWMutex
	history []Event
	next    int
	full    bool
}

// NewBus creates a bus that remembers the last size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultHistory
	}
	return &Bus{
		bus:     evbus.New(),
		now:     time.Now,
		history: make([]Event, size),
	}
}

// Emit stamps e with a sequence number and time, records it and publishes
// it on its kind topic and on TopicAll.
func (b *Bus) Emit(e Event) {
	e.Seq = b.seq.Add(1)
	if e.Time.IsZero() {
		e.Time = b.now().UTC()
	}

	b.mu.Lock()
	b.history[b.next] = e
	b.next = (b.next + 1) % len(b.history)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()

	b.bus.Publish(string(e.Kind), e)
	b.bus.Publish(TopicAll, e)
}

// Subscribe registers fn for events of one kind.
func (b *Bus) Subscribe(kind Kind, fn func(Event)) error {
	return b.bus.Subscribe(string(kind), fn)
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn func(Event)) error {
	return b.bus.Subscribe(TopicAll, fn)
}

// Unsubscribe removes a handler registered with Subscribe.
func (b *Bus) Unsubscribe(kind Kind, fn func(Event)) error {
	return b.bus.Unsubscribe(string(kind), fn)
}

// UnsubscribeAll removes a handler registered with SubscribeAll.
func (b *Bus) UnsubscribeAll(fn func(Event)) error {
	return b.bus.Unsubscribe(TopicAll, fn)
}

// LastSeq returns the sequence number of the most recent event.
func (b *Bus) LastSeq() uint64 {
	return b.seq.Load()
}

// Recent returns up to limit of the newest recorded events, oldest first.
// An empty kind matches everything. A limit <= 0 returns the whole history.
func (b *Bus) Recent(limit int, kind Kind) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.next
	start := 0
	if b.full {
		count = len(b.history)
		start = b.next
	}

	var out []Event
	for i := 0; i < count; i++ {
		e := b.history[(start+i)%len(b.history)]
		if kind == "" || e.Kind == kind {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
