package event

import (
	"errors"
	"fmt"
)

// ErrUndrained is returned by PrepareForTick when events from the previous
// tick were never consumed.
var ErrUndrained = errors.New("events leaked across tick boundary")

// Bus collects the events of one tick. Every event lands in the tick log and
// in the queue of each registered recipient; recipient-scoped events land in
// one queue only. Accessed only from the game loop goroutine.
type Bus[K comparable, E any] struct {
	tick   uint32
	log    []E
	queues map[K][]E
}

func NewBus[K comparable, E any]() *Bus[K, E] {
	return &Bus[K, E]{
		log:    make([]E, 0, 64),
		queues: make(map[K][]E),
	}
}

// Tick returns the number passed to the last PrepareForTick.
func (b *Bus[K, E]) Tick() uint32 { return b.tick }

// PrepareForTick resets the recipient set. It must run before any event of
// the tick is added. Recipients carried over from the previous tick must have
// been drained; recipients that are gone are dropped with whatever they held.
func (b *Bus[K, E]) PrepareForTick(tick uint32, recipients []K) error {
	if len(b.log) != 0 {
		return fmt.Errorf("tick %d: %d unprocessed log events: %w", tick, len(b.log), ErrUndrained)
	}
	next := make(map[K][]E, len(recipients))
	for _, r := range recipients {
		if q := b.queues[r]; len(q) != 0 {
			return fmt.Errorf("tick %d: recipient %v has %d queued events: %w", tick, r, len(q), ErrUndrained)
		}
		next[r] = nil
	}
	b.queues = next
	b.tick = tick
	return nil
}

// Add appends e to the tick log and to every recipient's queue.
func (b *Bus[K, E]) Add(e E) {
	for r, q := range b.queues {
		b.queues[r] = append(q, e)
	}
	b.log = append(b.log, e)
}

// AddFor appends e to one recipient's queue only.
func (b *Bus[K, E]) AddFor(r K, e E) error {
	q, ok := b.queues[r]
	if !ok {
		return fmt.Errorf("tick %d: recipient %v not prepared", b.tick, r)
	}
	b.queues[r] = append(q, e)
	return nil
}

// Has reports whether r is a recipient in the current tick.
func (b *Bus[K, E]) Has(r K) bool {
	_, ok := b.queues[r]
	return ok
}

// Log returns the events added to the tick log so far. The slice is only
// valid until the next Add.
func (b *Bus[K, E]) Log() []E { return b.log }

// TakeLog drains the tick log.
func (b *Bus[K, E]) TakeLog() []E {
	out := b.log
	b.log = make([]E, 0, cap(out))
	return out
}

// Take drains one recipient's queue.
func (b *Bus[K, E]) Take(r K) []E {
	q, ok := b.queues[r]
	if ok {
		b.queues[r] = nil
	}
	return q
}
