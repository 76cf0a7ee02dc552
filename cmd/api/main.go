package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"github.com/PaulBabatuyi/campus-messaging/internal/config"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/db"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/media"
	"github.com/PaulBabatuyi/campus-messaging/internal/middleware"
	"github.com/PaulBabatuyi/campus-messaging/internal/notify"
	"github.com/PaulBabatuyi/campus-messaging/internal/profiles"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	dbClient, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	// Ensure indexes exist
	if err := dbClient.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create indexes: %v", err)
	}

	st := stores{
		users:         data.NewUsersStore(dbClient.UsersCollection()),
		conversations: data.NewConversationsStore(dbClient.ConversationsCollection()),
		messages:      data.NewMessagesStore(dbClient.MessagesCollection()),
		notifications: data.NewNotificationsStore(dbClient.NotificationsCollection()),
		push:          data.NewPushSubscriptionsStore(dbClient.PushSubscriptionsCollection()),
	}

	// JWT_KEYS enables rotation; a single JWT_SECRET is still accepted.
	var jwtMgr *auth.JWTManager
	if len(cfg.JWTKeys) > 0 {
		jwtMgr = auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKID, cfg.TokenTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	opts := options{cacheTTL: cfg.ProfileCacheTTL}
	if cfg.ValkeyAddr != "" {
		client, err := profiles.DialValkey(cfg.ValkeyAddr)
		if err != nil {
			log.Fatalf("failed to connect to valkey: %v", err)
		}
		defer client.Close()
		opts.cache = profiles.NewValkeyCache(client)
	}
	if cfg.CloudinaryURL != "" {
		up, err := media.NewCloudinaryUploader(cfg.CloudinaryURL)
		if err != nil {
			log.Fatalf("failed to configure cloudinary: %v", err)
		}
		opts.uploader = up
	}
	if cfg.PushEnabled() {
		opts.vapid = &notify.VAPID{
			Subscriber: cfg.VAPIDSubscriber,
			PublicKey:  cfg.VAPIDPublicKey,
			PrivateKey: cfg.VAPIDPrivateKey,
		}
	}

	srv := newServer(st, jwtMgr, opts)
	unsubscribe := srv.gateway.Bus().Subscribe(func(e *writegate.Error) {
		log.Printf("write failed: %v (actor %q)", e, e.Actor)
	})
	defer unsubscribe()

	if cfg.WatchChangeStreams {
		// without pre-images, conversation deletes reach other instances'
		// conversation streams but not their inbox streams
		if err := dbClient.EnablePreImages(ctx); err != nil {
			log.Printf("change stream pre-images unavailable: %v", err)
		}
		w := feed.NewWatcher(srv.hub, dbClient.MessagesCollection(), dbClient.ConversationsCollection(), dbClient.NotificationsCollection())
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Printf("change stream watcher stopped: %v", err)
			}
		}()
	}

	// Register and Login get a small burst to allow a couple of quick retries.
	authLimiter := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute)
	defer authLimiter.Stop()
	sendLimiter := middleware.NewLimiterStore(cfg.SendRateLimitRPM, 20, time.Minute)
	defer sendLimiter.Stop()
	limits := map[string]*middleware.LimiterStore{
		v1.MessagingService_Register_FullMethodName:    authLimiter,
		v1.MessagingService_Login_FullMethodName:       authLimiter,
		v1.MessagingService_SendMessage_FullMethodName: sendLimiter,
	}

	var serverOpts []grpc.ServerOption
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			log.Fatalf("failed to load TLS certs: %v", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	} else if cfg.RequireTLS {
		log.Fatal("REQUIRE_TLS is true but TLS_CERT/TLS_KEY are not configured")
	}

	grpcServer := newGRPCServer(srv, jwtMgr, limits, serverOpts...)

	listenAddr := fmt.Sprintf(":%s", cfg.GRPCPort)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	go func() {
		log.Printf("gRPC server listening on %s", listenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server exit: %v", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           newHTTPHandler(srv, cfg.CORSOrigins, sendLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", httpServer.Addr)
		var err error
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server exit: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	cancel()
	// let detached notification and sweep writes finish before the DB closes
	srv.gateway.Wait()
}

// newGRPCServer builds the gRPC server: authentication runs first so the
// rate limiter can key on the caller.
func newGRPCServer(srv *Server, jwtMgr *auth.JWTManager, limits map[string]*middleware.LimiterStore, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			authUnaryInterceptor(jwtMgr),
			middleware.RateLimitUnaryInterceptor(limits),
		),
		grpc.ChainStreamInterceptor(authStreamInterceptor(jwtMgr)),
	)
	s := grpc.NewServer(opts...)
	registerService(s, srv)
	return s
}
