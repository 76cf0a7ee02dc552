package writegate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

func TestGateway_DoSuccessPublishesNothing(t *testing.T) {
	bus := NewBus()
	var got []*Error
	bus.Subscribe(func(e *Error) { got = append(got, e) })

	g := New(bus)
	err := g.Do(context.Background(), Write{
		Path:      "conversations/c1",
		Operation: OpCreate,
		Apply:     func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no published errors, got %d", len(got))
	}
}

func TestGateway_DoFailureReturnsTypedErrorAndPublishesOnce(t *testing.T) {
	bus := NewBus()
	var got []*Error
	bus.Subscribe(func(e *Error) { got = append(got, e) })

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := New(bus, WithClock(func() time.Time { return at }))

	payload := map[string]string{"text": "hi"}
	err := g.Do(context.Background(), Write{
		Path:      "conversations/c1/messages/m1",
		Operation: OpCreate,
		Payload:   payload,
		Actor:     "alice",
		Apply: func(context.Context) error {
			return fmt.Errorf("insert: %w", data.ErrPermissionDenied)
		},
	})

	var werr *Error
	if !errors.As(err, &werr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if werr.Kind != KindPermissionDenied {
		t.Fatalf("expected permission_denied, got %s", werr.Kind)
	}
	if werr.Path != "conversations/c1/messages/m1" || werr.Operation != OpCreate || werr.Actor != "alice" {
		t.Fatalf("unexpected error fields: %+v", werr)
	}
	if !werr.At.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, werr.At)
	}
	if !errors.Is(err, data.ErrPermissionDenied) {
		t.Fatalf("expected error to unwrap to ErrPermissionDenied")
	}
	if len(got) != 1 || got[0] != werr {
		t.Fatalf("expected exactly one published error matching the returned one, got %d", len(got))
	}
}

func TestGateway_DoDoesNotRetry(t *testing.T) {
	g := New(NewBus())
	calls := 0
	_ = g.Do(context.Background(), Write{
		Path:      "p",
		Operation: OpUpdate,
		Apply: func(context.Context) error {
			calls++
			return data.ErrUnavailable
		},
	})
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestGateway_GoIsDetachedFromCallerCancellation(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	var got []*Error
	bus.Subscribe(func(e *Error) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	g := New(bus)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	var sawErr error
	g.Go(ctx, Write{
		Path:      "notifications/n1",
		Operation: OpCreate,
		Apply: func(ctx context.Context) error {
			<-release
			sawErr = ctx.Err()
			return errors.New("boom")
		},
	})
	cancel()
	close(release)
	g.Wait()

	if sawErr != nil {
		t.Fatalf("background write observed caller cancellation: %v", sawErr)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != KindUnknown {
		t.Fatalf("expected one unknown failure on the bus, got %+v", got)
	}
}

func TestBus_UnsubscribeAndPanickingHandler(t *testing.T) {
	bus := NewBus()
	calls := 0
	bus.Subscribe(func(*Error) { panic("bad handler") })
	unsub := bus.Subscribe(func(*Error) { calls++ })

	bus.Publish(&Error{})
	if calls != 1 {
		t.Fatalf("expected handler after a panicking one to run, got %d calls", calls)
	}

	unsub()
	unsub()
	bus.Publish(&Error{})
	if calls != 1 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
	if bus.Len() != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", bus.Len())
	}
}

func TestBus_PanickingHandlerIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	bus := NewBus()
	bus.Subscribe(func(*Error) { panic("toast handler gone") })
	bus.Publish(&Error{Path: "conversations/c1", Operation: OpUpdate})

	out := buf.String()
	if !strings.Contains(out, "toast handler gone") || !strings.Contains(out, "conversations/c1") {
		t.Fatalf("expected the recovered panic to be logged, got %q", out)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{data.ErrNotFound, KindNotFound},
		{fmt.Errorf("x: %w", data.ErrConflict), KindConflict},
		{data.ErrUserExists, KindConflict},
		{data.ErrUnavailable, KindUnavailable},
		{context.DeadlineExceeded, KindUnavailable},
		{context.Canceled, KindCanceled},
		{fmt.Errorf("%w: empty", ErrInvalid), KindInvalid},
		{errors.New("weird"), KindUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v) = %s, want %s", c.err, got, c.want)
		}
	}
}
