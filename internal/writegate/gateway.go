// Package writegate is the single persistence path every component writes
// through. A write either returns a typed *Error to its caller (Do) or runs
// detached (Go); in both cases a failure is published once on the Bus, where
// UI-facing handlers pick it up. Nothing is retried.
package writegate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Operation names the kind of write attempted.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// Write describes one persistence attempt. Path is the logical document path
// (e.g. "conversations/c1/messages/m1"); Apply performs it.
type Write struct {
	Path      string
	Operation Operation
	Payload   any
	// Actor is the user on whose behalf the write runs; error subscribers
	// use it to route the failure to the right client.
	Actor string
	Apply func(ctx context.Context) error
}

// Error is the structured failure report of a write.
type Error struct {
	Path      string    `json:"path"`
	Operation Operation `json:"operation"`
	Payload   any       `json:"attemptedPayload,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Kind      Kind      `json:"kind"`
	At        time.Time `json:"at"`
	Err       error     `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Operation, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Gateway executes writes and reports failures.
type Gateway struct {
	bus      *Bus
	classify func(error) Kind
	now      func() time.Time
	wg       sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClassifier replaces the default error classifier.
func WithClassifier(fn func(error) Kind) Option {
	return func(g *Gateway) { g.classify = fn }
}

// WithClock replaces time.Now for error timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// New returns a Gateway publishing failures on bus.
func New(bus *Bus, opts ...Option) *Gateway {
	g := &Gateway{bus: bus, classify: Classify, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Bus returns the bus failures are published on.
func (g *Gateway) Bus() *Bus { return g.bus }

// Do runs w and returns nil or a *Error. The failure is also published.
func (g *Gateway) Do(ctx context.Context, w Write) error {
	if err := w.Apply(ctx); err != nil {
		werr := &Error{
			Path:      w.Path,
			Operation: w.Operation,
			Payload:   w.Payload,
			Actor:     w.Actor,
			Kind:      g.classify(err),
			At:        g.now(),
			Err:       err,
		}
		g.bus.Publish(werr)
		return werr
	}
	return nil
}

// Go runs w in the background and returns immediately. The write keeps the
// values of ctx but not its cancellation, so it outlives the request that
// issued it. Failures are only observable on the bus.
func (g *Gateway) Go(ctx context.Context, w Write) {
	ctx = context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		_ = g.Do(ctx, w)
	}()
}

// Wait blocks until every write started with Go has finished.
func (g *Gateway) Wait() {
	g.wg.Wait()
}
