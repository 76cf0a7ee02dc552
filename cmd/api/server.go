package main

import (
	"context"
	"time"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/media"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/notify"
	"github.com/PaulBabatuyi/campus-messaging/internal/profiles"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
	"google.golang.org/grpc"
)

// accounts is the credential side of the user store.
type accounts interface {
	CreateUser(ctx context.Context, email, hashedPassword, username string) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
}

type userStore interface {
	accounts
	profiles.Source
	profiles.Editor
}

type conversationStore interface {
	messaging.Conversations
	profiles.ParticipantRefresher
}

type notificationStore interface {
	notify.Store
	profiles.SenderRefresher
}

// stores is one full set of persistence, Mongo in production and memstore
// in tests.
type stores struct {
	users         userStore
	conversations conversationStore
	messages      messaging.Messages
	notifications notificationStore
	push          notify.PushStore
}

// options carries the optional collaborators of a Server.
type options struct {
	cache    profiles.Cache
	cacheTTL time.Duration
	vapid    *notify.VAPID // nil disables web push
	uploader media.Uploader
	now      messaging.Clock
}

// Server implements the messaging service and owns the domain components
// every transport (gRPC, HTTP edge) talks to.
type Server struct {
	v1.UnimplementedMessagingServiceServer

	users    accounts
	auth     *auth.JWTManager
	hub      *feed.Hub
	gateway  *writegate.Gateway
	profiles *profiles.Updater
	dir      *messaging.Directory
	reads    *messaging.ReadTracker
	stream   *messaging.Stream
	notifs   *notify.Dispatcher
	push     *notify.WebPush
	uploader media.Uploader
}

// newServer wires the components over st.
func newServer(st stores, authMgr *auth.JWTManager, opts options) *Server {
	if opts.cache == nil {
		opts.cache = profiles.NewMemoryCache()
	}
	if opts.cacheTTL <= 0 {
		opts.cacheTTL = profiles.DefaultTTL
	}

	hub := feed.NewHub()
	gw := writegate.New(writegate.NewBus())
	resolver := profiles.NewResolver(st.users, opts.cache, opts.cacheTTL)

	dispatchOpts := []notify.Option{notify.WithHub(hub)}
	var push *notify.WebPush
	if opts.vapid != nil {
		push = notify.NewWebPush(st.push, *opts.vapid)
		dispatchOpts = append(dispatchOpts, notify.WithPusher(push))
	}
	notifs := notify.NewDispatcher(st.notifications, resolver, gw, dispatchOpts...)

	reads := messaging.NewReadTracker(st.conversations, gw, hub, opts.now)
	return &Server{
		users:    st.users,
		auth:     authMgr,
		hub:      hub,
		gateway:  gw,
		profiles: profiles.NewUpdater(st.users, resolver, st.conversations, st.notifications, gw),
		dir:      messaging.NewDirectory(st.conversations, st.messages, resolver, gw, hub, opts.now),
		reads:    reads,
		stream:   messaging.NewStream(st.conversations, st.messages, reads, notifs, gw, hub, opts.now),
		notifs:   notifs,
		push:     push,
		uploader: opts.uploader,
	}
}

// registerService registers the MessagingService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	v1.RegisterMessagingServiceServer(s, srv)
}
