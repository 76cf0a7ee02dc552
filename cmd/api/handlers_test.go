package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/memstore"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/notify"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func memStores(mem *memstore.DB) stores {
	return stores{
		users:         mem.Users,
		conversations: mem.Conversations,
		messages:      mem.Messages,
		notifications: mem.Notifications,
		push:          mem.PushSubscriptions,
	}
}

// newTestServer returns a Server over an in-memory store seeded with alice,
// bob and carol.
func newTestServer(t *testing.T) (*Server, *memstore.DB) {
	t.Helper()
	mem := memstore.New()
	mem.Users.Put(data.User{ID: "alice", Email: "alice@example.com", Username: "Alice"})
	mem.Users.Put(data.User{ID: "bob", Email: "bob@example.com", Username: "Bob"})
	mem.Users.Put(data.User{ID: "carol", Email: "carol@example.com", Username: "Carol"})
	srv := newServer(memStores(mem), auth.NewJWTManager("test-secret", time.Hour), options{})
	t.Cleanup(srv.gateway.Wait)
	return srv, mem
}

func asUser(id string) context.Context {
	return auth.WithClaims(context.Background(), &auth.Claims{UserID: id})
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}

func TestRegister_ValidatesInput(t *testing.T) {
	srv, _ := newTestServer(t)
	cases := []*v1.RegisterRequest{
		{Email: "not-an-email", Password: "longenough", Username: "x"},
		{Email: "dan@example.com", Password: "short", Username: "Dan"},
		{Email: "dan@example.com", Password: "longenough", Username: "   "},
	}
	for _, req := range cases {
		_, err := srv.Register(context.Background(), req)
		wantCode(t, err, codes.InvalidArgument)
	}
}

func TestRegisterAndLogin_IssueTokens(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()

	reg, err := srv.Register(ctx, &v1.RegisterRequest{Email: " Dan@Example.com ", Password: "secret-pass", Username: "Dan"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	claims, err := srv.auth.VerifyToken(reg.Token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != reg.UserID || claims.Email != "dan@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, err = srv.Register(ctx, &v1.RegisterRequest{Email: "dan@example.com", Password: "secret-pass", Username: "Dan"})
	wantCode(t, err, codes.AlreadyExists)

	_, err = srv.Login(ctx, &v1.LoginRequest{Email: "dan@example.com", Password: "wrong-pass"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = srv.Login(ctx, &v1.LoginRequest{Email: "nobody@example.com", Password: "secret-pass"})
	wantCode(t, err, codes.Unauthenticated)

	login, err := srv.Login(ctx, &v1.LoginRequest{Email: "DAN@example.com", Password: "secret-pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != reg.UserID {
		t.Fatalf("login user %s, registered %s", login.UserID, reg.UserID)
	}
}

func TestHandlers_RequireClaims(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.SendMessage(context.Background(), &v1.SendMessageRequest{ConversationID: "c1", Text: "hi"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = srv.ListConversations(context.Background(), &v1.ListConversationsRequest{})
	wantCode(t, err, codes.Unauthenticated)
}

func TestConversationFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob, carol := asUser("alice"), asUser("bob"), asUser("carol")

	c1, err := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	c2, err := srv.GetOrCreateConversation(bob, &v1.GetOrCreateConversationRequest{OtherUserID: "alice"})
	if err != nil {
		t.Fatalf("GetOrCreateConversation reversed: %v", err)
	}
	if c1.ConversationID != c2.ConversationID {
		t.Fatalf("expected one conversation, got %s and %s", c1.ConversationID, c2.ConversationID)
	}
	convID := c1.ConversationID

	_, err = srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "alice"})
	wantCode(t, err, codes.InvalidArgument)
	_, err = srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "ghost"})
	wantCode(t, err, codes.NotFound)

	msg, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: convID, ClientRef: "ref-1", Text: "hello bob"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ClientRef != "ref-1" || msg.SenderID != "alice" || msg.ID == "" {
		t.Fatalf("unexpected stored message %+v", msg)
	}

	_, err = srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: convID})
	wantCode(t, err, codes.InvalidArgument)
	_, err = srv.SendMessage(carol, &v1.SendMessageRequest{ConversationID: convID, Text: "let me in"})
	wantCode(t, err, codes.PermissionDenied)

	list, err := srv.ListConversations(bob, &v1.ListConversationsRequest{})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list.Conversations) != 1 || list.UnreadCount != 1 {
		t.Fatalf("expected one unread conversation, got %d (unread %d)", len(list.Conversations), list.UnreadCount)
	}
	conv := list.Conversations[0]
	if !conv.Unread || !conv.UnreadForMe {
		t.Fatalf("expected unread for bob: %+v", conv)
	}
	if conv.LastMessage == nil || conv.LastMessage.Text != "hello bob" {
		t.Fatalf("unexpected last message %+v", conv.LastMessage)
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("expected two participants, got %+v", conv.Participants)
	}

	// the sender viewing does not clear the flag
	read, err := srv.MarkRead(alice, &v1.MarkReadRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("MarkRead alice: %v", err)
	}
	if read.Cleared {
		t.Fatal("sender should not clear unread")
	}
	read, err = srv.MarkRead(bob, &v1.MarkReadRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("MarkRead bob: %v", err)
	}
	if !read.Cleared {
		t.Fatal("recipient should clear unread")
	}
	_, err = srv.MarkRead(carol, &v1.MarkReadRequest{ConversationID: convID})
	wantCode(t, err, codes.PermissionDenied)

	list, _ = srv.ListConversations(bob, &v1.ListConversationsRequest{})
	if list.UnreadCount != 0 || list.Conversations[0].UnreadForMe {
		t.Fatalf("expected read conversation, got %+v", list.Conversations[0])
	}

	hist, err := srv.GetHistory(bob, &v1.GetHistoryRequest{ConversationID: convID})
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].ID != msg.ID {
		t.Fatalf("unexpected history %+v", hist.Messages)
	}

	_, err = srv.DeleteMessage(bob, &v1.DeleteMessageRequest{ConversationID: convID, MessageID: msg.ID})
	wantCode(t, err, codes.PermissionDenied)
	if _, err := srv.DeleteMessage(alice, &v1.DeleteMessageRequest{ConversationID: convID, MessageID: msg.ID}); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	if _, err := srv.DeleteConversation(bob, &v1.DeleteConversationRequest{ConversationID: convID}); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	_, err = srv.GetHistory(alice, &v1.GetHistoryRequest{ConversationID: convID})
	wantCode(t, err, codes.NotFound)
}

func TestSendMessage_NotifiesRecipient(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob := asUser("alice"), asUser("bob")

	c, err := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	if _, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: c.ConversationID, Text: "ping"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	srv.gateway.Wait()

	ns, err := srv.ListNotifications(bob, &v1.ListNotificationsRequest{})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(ns.Notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(ns.Notifications))
	}
	n := ns.Notifications[0]
	if n.Type != string(data.NotifyNewMessage) || n.SenderID != "alice" || n.SenderProfile.Username != "Alice" || n.Read {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.RelatedID != c.ConversationID {
		t.Fatalf("notification related to %q, want %q", n.RelatedID, c.ConversationID)
	}

	if _, err := srv.MarkNotificationRead(bob, &v1.MarkNotificationReadRequest{NotificationID: n.ID}); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	ns, _ = srv.ListNotifications(bob, &v1.ListNotificationsRequest{})
	if !ns.Notifications[0].Read {
		t.Fatal("notification should be read")
	}

	mine, _ := srv.ListNotifications(alice, &v1.ListNotificationsRequest{})
	if len(mine.Notifications) != 0 {
		t.Fatalf("sender should have no notifications, got %d", len(mine.Notifications))
	}
}

func TestUpdateProfile_PropagatesToConversations(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, bob := asUser("alice"), asUser("bob")

	if _, err := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"}); err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	p, err := srv.UpdateProfile(alice, &v1.UpdateProfileRequest{Username: "Alicia", ProfilePicture: "https://img/alicia.png"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.Username != "Alicia" {
		t.Fatalf("unexpected profile %+v", p)
	}
	srv.gateway.Wait()

	list, err := srv.ListConversations(bob, &v1.ListConversationsRequest{})
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	var found bool
	for _, part := range list.Conversations[0].Participants {
		if part.UserID == "alice" {
			found = part.Username == "Alicia" && part.ProfilePicture == "https://img/alicia.png"
		}
	}
	if !found {
		t.Fatalf("snapshot not refreshed: %+v", list.Conversations[0].Participants)
	}

	_, err = srv.UpdateProfile(alice, &v1.UpdateProfileRequest{Username: " "})
	wantCode(t, err, codes.InvalidArgument)
}

func TestRegisterPushSubscription_RequiresConfiguration(t *testing.T) {
	srv, _ := newTestServer(t)
	_, err := srv.RegisterPushSubscription(asUser("alice"), &v1.RegisterPushSubscriptionRequest{Endpoint: "https://push.example/1", P256dh: "k", Auth: "a"})
	wantCode(t, err, codes.FailedPrecondition)
}

func TestRegisterPushSubscription_Stores(t *testing.T) {
	mem := memstore.New()
	mem.Users.Put(data.User{ID: "alice", Email: "alice@example.com", Username: "Alice"})
	srv := newServer(memStores(mem), auth.NewJWTManager("test-secret", time.Hour), options{
		vapid: &notify.VAPID{Subscriber: "ops@example.com", PublicKey: "pub", PrivateKey: "priv"},
	})

	_, err := srv.RegisterPushSubscription(asUser("alice"), &v1.RegisterPushSubscriptionRequest{Endpoint: "https://push.example/1"})
	wantCode(t, err, codes.InvalidArgument)

	if _, err := srv.RegisterPushSubscription(asUser("alice"), &v1.RegisterPushSubscriptionRequest{Endpoint: "https://push.example/1", P256dh: "k", Auth: "a"}); err != nil {
		t.Fatalf("RegisterPushSubscription: %v", err)
	}
	subs, err := mem.PushSubscriptions.ListByUser(context.Background(), "alice")
	if err != nil || len(subs) != 1 {
		t.Fatalf("expected one stored subscription, got %d (%v)", len(subs), err)
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{messaging.ErrSelfConversation, codes.InvalidArgument},
		{fmt.Errorf("wrapped: %w", messaging.ErrInvalidPayload), codes.InvalidArgument},
		{messaging.ErrConversationNotFound, codes.NotFound},
		{messaging.ErrNotParticipant, codes.PermissionDenied},
		{messaging.ErrNotMessageOwner, codes.PermissionDenied},
		{&writegate.Error{Kind: writegate.KindUnavailable, Err: data.ErrUnavailable}, codes.Unavailable},
		{&writegate.Error{Kind: writegate.KindPermissionDenied, Err: errors.New("rules")}, codes.PermissionDenied},
		{data.ErrConflict, codes.AlreadyExists},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{status.Error(codes.Aborted, "as is"), codes.Aborted},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		if got := status.Code(toStatus(tc.err)); got != tc.want {
			t.Fatalf("toStatus(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
	if toStatus(nil) != nil {
		t.Fatal("nil error should stay nil")
	}
}

func TestAuthUnaryInterceptor(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	interceptor := authUnaryInterceptor(jwtMgr)
	token, _, err := jwtMgr.GenerateToken("alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var seen string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = auth.UserID(ctx)
		return "ok", nil
	}
	private := &grpc.UnaryServerInfo{FullMethod: v1.MessagingService_SendMessage_FullMethodName}
	public := &grpc.UnaryServerInfo{FullMethod: v1.MessagingService_Login_FullMethodName}

	if _, err := interceptor(context.Background(), nil, public, handler); err != nil {
		t.Fatalf("public method should pass without token: %v", err)
	}

	_, err = interceptor(context.Background(), nil, private, handler)
	wantCode(t, err, codes.Unauthenticated)

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))
	_, err = interceptor(bad, nil, private, handler)
	wantCode(t, err, codes.Unauthenticated)

	good := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	if _, err := interceptor(good, nil, private, handler); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if seen != "alice" {
		t.Fatalf("handler saw user %q", seen)
	}
}

// fakeStream implements grpc.ServerStreamingServer for direct handler tests.
type fakeStream[T any] struct {
	grpc.ServerStream
	ctx  context.Context
	sent chan *T
}

func newFakeStream[T any](ctx context.Context) *fakeStream[T] {
	return &fakeStream[T]{ctx: ctx, sent: make(chan *T, 16)}
}

func (f *fakeStream[T]) Send(m *T) error              { f.sent <- m; return nil }
func (f *fakeStream[T]) Context() context.Context     { return f.ctx }
func (f *fakeStream[T]) SetHeader(metadata.MD) error  { return nil }
func (f *fakeStream[T]) SendHeader(metadata.MD) error { return nil }
func (f *fakeStream[T]) SetTrailer(metadata.MD)       {}

func (f *fakeStream[T]) next(t *testing.T) *T {
	t.Helper()
	select {
	case m := <-f.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream message")
		return nil
	}
}

func TestSubscribe_SnapshotThenLiveMessages(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := asUser("alice")

	c, err := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})
	if err != nil {
		t.Fatalf("GetOrCreateConversation: %v", err)
	}
	if _, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: c.ConversationID, Text: "before"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	ctx, cancel := context.WithCancel(asUser("bob"))
	stream := newFakeStream[v1.ConversationEvent](ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Subscribe(&v1.SubscribeRequest{ConversationID: c.ConversationID}, stream) }()

	first := stream.next(t)
	if first.Kind != v1.EventSnapshot || len(first.Snapshot) != 1 || first.Snapshot[0].Text != "before" {
		t.Fatalf("unexpected snapshot %+v", first)
	}

	if _, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: c.ConversationID, ClientRef: "r2", Text: "after"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	ev := stream.next(t)
	if ev.Kind != v1.EventMessageAdded || ev.Message == nil || ev.Message.Text != "after" || ev.Message.ClientRef != "r2" {
		t.Fatalf("unexpected event %+v", ev)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Subscribe returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestSubscribe_EndsWhenConversationDeleted(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := asUser("alice")
	c, _ := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})

	stream := newFakeStream[v1.ConversationEvent](asUser("bob"))
	done := make(chan error, 1)
	go func() { done <- srv.Subscribe(&v1.SubscribeRequest{ConversationID: c.ConversationID}, stream) }()
	stream.next(t)

	if _, err := srv.DeleteConversation(alice, &v1.DeleteConversationRequest{ConversationID: c.ConversationID}); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if ev := stream.next(t); ev.Kind != v1.EventConversationDeleted {
		t.Fatalf("expected deletion event, got %+v", ev)
	}
	if err := <-done; err != nil {
		t.Fatalf("Subscribe returned %v", err)
	}
}

func TestWatchErrors_ReportsCallerFailures(t *testing.T) {
	srv, mem := newTestServer(t)
	alice := asUser("alice")
	c, _ := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})

	ctx, cancel := context.WithCancel(alice)
	defer cancel()
	stream := newFakeStream[v1.WriteError](ctx)
	go func() { _ = srv.WatchErrors(&v1.WatchErrorsRequest{}, stream) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.gateway.Bus().Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("error stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mem.Fail(memstore.OpMessageInsert, data.ErrUnavailable)
	_, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: c.ConversationID, Text: "lost"})
	wantCode(t, err, codes.Unavailable)

	we := stream.next(t)
	if we.Kind != string(writegate.KindUnavailable) || we.Operation != string(writegate.OpCreate) {
		t.Fatalf("unexpected write error %+v", we)
	}
	if !strings.HasPrefix(we.Path, "conversations/"+c.ConversationID+"/messages/") {
		t.Fatalf("unexpected path %q", we.Path)
	}
	if len(we.AttemptedPayload) == 0 {
		t.Fatal("expected attempted payload")
	}
}

func TestWatchNotifications_StreamsNewNotices(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := asUser("alice")
	c, _ := srv.GetOrCreateConversation(alice, &v1.GetOrCreateConversationRequest{OtherUserID: "bob"})

	ctx, cancel := context.WithCancel(asUser("bob"))
	defer cancel()
	stream := newFakeStream[v1.NotificationEvent](ctx)
	go func() { _ = srv.WatchNotifications(&v1.WatchNotificationsRequest{}, stream) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.Subscribers("users/bob/notifications") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := srv.SendMessage(alice, &v1.SendMessageRequest{ConversationID: c.ConversationID, Text: "ding"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	ev := stream.next(t)
	if ev.Kind != v1.EventNotificationAdded || ev.Notification == nil || ev.Notification.SenderID != "alice" {
		t.Fatalf("unexpected notification event %+v", ev)
	}
}
