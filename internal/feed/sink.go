package feed

import (
	"errors"
	"sync"
)

// ErrSlowConsumer is returned by ChanSink.Send when its buffer is full. The
// hub then drops the sink; the reader sees Dropped closed and should resync.
var ErrSlowConsumer = errors.New("feed: subscriber too slow, dropped")

// DefaultBuffer is the ChanSink buffer used when size <= 0.
const DefaultBuffer = 64

// ChanSink is a buffered Sink read through C. Send never blocks the publisher.
type ChanSink struct {
	ch      chan Event
	dropped chan struct{}
	once    sync.Once
}

// NewChanSink returns a sink buffering up to size events.
func NewChanSink(size int) *ChanSink {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &ChanSink{
		ch:      make(chan Event, size),
		dropped: make(chan struct{}),
	}
}

// Send implements Sink.
func (s *ChanSink) Send(ev Event) error {
	select {
	case <-s.dropped:
		return ErrSlowConsumer
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	default:
		s.once.Do(func() { close(s.dropped) })
		return ErrSlowConsumer
	}
}

// C returns the event channel. It is never closed.
func (s *ChanSink) C() <-chan Event { return s.ch }

// Dropped is closed once the sink overflowed.
func (s *ChanSink) Dropped() <-chan struct{} { return s.dropped }

// Subscribe registers a new ChanSink on topic and returns it together with a
// function that unregisters it.
func (h *Hub) Subscribe(topic string, buffer int) (*ChanSink, func()) {
	s := NewChanSink(buffer)
	id := h.Register(topic, s)
	var once sync.Once
	return s, func() { once.Do(func() { h.Unregister(topic, id) }) }
}
