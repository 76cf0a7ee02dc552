package chatclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var epoch = time.UnixMilli(1_700_000_000_000).UTC()

// fakeServer is a scripted MessagingService.
type fakeServer struct {
	v1.UnimplementedMessagingServiceServer

	mu       sync.Mutex
	failNext bool
	n        int
	events   chan *v1.ConversationEvent
}

func authorized(ctx context.Context) bool {
	md, _ := metadata.FromIncomingContext(ctx)
	v := md.Get("authorization")
	return len(v) == 1 && v[0] == "Bearer tok"
}

func (f *fakeServer) Login(_ context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	if req.Password != "pw" {
		return nil, status.Error(codes.Unauthenticated, "invalid credentials")
	}
	return &v1.AuthResponse{Token: "tok", UserID: "alice", ExpiresAt: epoch.Add(time.Hour)}, nil
}

func (f *fakeServer) Subscribe(req *v1.SubscribeRequest, stream grpc.ServerStreamingServer[v1.ConversationEvent]) error {
	if !authorized(stream.Context()) {
		return status.Error(codes.Unauthenticated, "no token")
	}
	snap := &v1.ConversationEvent{Kind: v1.EventSnapshot, Snapshot: []*v1.Message{
		{ID: "m0", ConversationID: req.ConversationID, SenderID: "bob", Text: "earlier", CreatedAt: epoch},
	}}
	if err := stream.Send(snap); err != nil {
		return err
	}
	for {
		select {
		case ev := <-f.events:
			if err := stream.Send(ev); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (f *fakeServer) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.Message, error) {
	if !authorized(ctx) {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, status.Error(codes.Unavailable, "store down")
	}
	f.n++
	m := &v1.Message{
		ID:             fmt.Sprintf("m%d", f.n),
		ConversationID: req.ConversationID,
		SenderID:       "alice",
		ClientRef:      req.ClientRef,
		Text:           req.Text,
		CreatedAt:      epoch.Add(time.Duration(f.n) * time.Millisecond),
	}
	// echo it on the live stream like the real service does
	f.events <- &v1.ConversationEvent{Kind: v1.EventMessageAdded, MessageID: m.ID, Message: m}
	return m, nil
}

func startFake(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{events: make(chan *v1.ConversationEvent, 16)}
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	v1.RegisterMessagingServiceServer(s, fake)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return New(conn), fake
}

func waitFor(t *testing.T, v *View, cond func([]messaging.Entry) bool) []messaging.Entry {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if es := v.Entries(); cond(es) {
			return es
		}
		select {
		case <-v.Changes():
		case <-deadline:
			t.Fatalf("condition not met, entries: %+v", v.Entries())
		}
	}
}

func TestClient_RequiresLogin(t *testing.T) {
	c, _ := startFake(t)
	if _, err := c.Conversation(context.Background(), "bob"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if _, err := c.Login(context.Background(), "alice@example.com", "nope"); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
	if _, err := c.Login(context.Background(), "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if c.UserID() != "alice" {
		t.Fatalf("unexpected user %q", c.UserID())
	}
}

func TestView_OptimisticSendReconciles(t *testing.T) {
	c, _ := startFake(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	v, err := c.Open(ctx, "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	if es := v.Entries(); len(es) != 1 || es[0].Message.ID != "m0" {
		t.Fatalf("unexpected snapshot %+v", es)
	}

	ref, err := v.Send(ctx, messaging.TextPayload("hi"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	es := waitFor(t, v, func(es []messaging.Entry) bool { return len(es) == 2 && es[1].State == messaging.StateSent })
	if es[1].ClientRef != ref || es[1].Message.ID != "m1" {
		t.Fatalf("entry not reconciled: %+v", es[1])
	}

	// the echo on the live stream must not duplicate it
	time.Sleep(50 * time.Millisecond)
	if n := len(v.Entries()); n != 2 {
		t.Fatalf("expected 2 entries after echo, got %d", n)
	}
}

func TestView_FailedSendCanRetry(t *testing.T) {
	c, fake := startFake(t)
	ctx := context.Background()
	if _, err := c.Login(ctx, "alice@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	v, err := c.Open(ctx, "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	fake.mu.Lock()
	fake.failNext = true
	fake.mu.Unlock()

	ref, err := v.Send(ctx, messaging.TextPayload("flaky"))
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	es := v.Entries()
	if last := es[len(es)-1]; last.ClientRef != ref || last.State != messaging.StateFailed || last.Err == nil {
		t.Fatalf("expected failed entry, got %+v", last)
	}

	if err := v.Retry(ctx, ref); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	es = waitFor(t, v, func(es []messaging.Entry) bool { return len(es) == 2 && es[1].State == messaging.StateSent })
	if es[1].Message.Text != "flaky" {
		t.Fatalf("unexpected retried entry %+v", es[1])
	}
}

func TestView_InvalidPayloadNeverSent(t *testing.T) {
	c, _ := startFake(t)
	ctx := context.Background()
	_, _ = c.Login(ctx, "alice@example.com", "pw")
	v, err := c.Open(ctx, "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	if _, err := v.Send(ctx, messaging.Payload{}); !errors.Is(err, messaging.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if n := len(v.Entries()); n != 1 {
		t.Fatalf("invalid payload reached the timeline: %d entries", n)
	}
}

func TestView_EndsOnConversationDeleted(t *testing.T) {
	c, fake := startFake(t)
	ctx := context.Background()
	_, _ = c.Login(ctx, "alice@example.com", "pw")
	v, err := c.Open(ctx, "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer v.Close()

	fake.events <- &v1.ConversationEvent{Kind: v1.EventMessageDeleted, MessageID: "m0"}
	fake.events <- &v1.ConversationEvent{Kind: v1.EventConversationDeleted}

	select {
	case <-v.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("view did not end")
	}
	if !errors.Is(v.Err(), ErrConversationDeleted) {
		t.Fatalf("expected ErrConversationDeleted, got %v", v.Err())
	}
	if n := len(v.Entries()); n != 0 {
		t.Fatalf("deleted message still shown: %d entries", n)
	}
}
