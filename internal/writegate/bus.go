package writegate

import (
	"log"
	"sync"
)

// Bus is the process-wide, synchronous, in-memory channel write failures are
// published on. Handlers run on the publishing goroutine, in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int64
	handlers map[int64]func(*Error)
	order    []int64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int64]func(*Error))}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(*Error)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers e to every current subscriber. A handler that panics is
// not allowed to take the write path down with it.
func (b *Bus) Publish(e *Error) {
	b.mu.RLock()
	fns := make([]func(*Error), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		call(fn, e)
	}
}

func call(fn func(*Error), e *Error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("writegate: error handler panicked on %s %s: %v", e.Operation, e.Path, r)
		}
	}()
	fn(e)
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
