package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/media"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/middleware"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxFrame   = 16 << 10
)

// httpEdge serves what browsers cannot do over gRPC: attachment uploads and
// a websocket view of a conversation.
type httpEdge struct {
	srv      *Server
	origins  []string
	sends    *middleware.LimiterStore
	upgrader websocket.Upgrader
}

func newHTTPHandler(srv *Server, origins []string, sends *middleware.LimiterStore) http.Handler {
	e := &httpEdge{srv: srv, origins: origins, sends: sends}
	e.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     e.checkOrigin,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(origins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", e.requireAuth)
	api.POST("/conversations/:id/attachments", middleware.GinRateLimit(sends, userKey), e.uploadAttachment)

	r.GET("/ws/conversations/:id", e.requireAuth, e.conversationSocket)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

func (e *httpEdge) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(e.origins) == 0 || slices.Contains(e.origins, "*") {
		return true
	}
	return slices.Contains(e.origins, origin)
}

func userKey(c *gin.Context) string {
	return "user:" + auth.UserID(c.Request.Context())
}

// requireAuth accepts the token as a bearer header or, for websockets which
// cannot set headers from a browser, as the token query parameter.
func (e *httpEdge) requireAuth(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := e.srv.auth.VerifyToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), claims))
	c.Next()
}

// httpStatus translates an error through the gRPC mapping.
func httpStatus(err error) int {
	switch status.Code(toStatus(err)) {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	msg := err.Error()
	if st, ok := status.FromError(toStatus(err)); ok {
		msg = st.Message()
	}
	c.AbortWithStatusJSON(httpStatus(err), gin.H{"error": msg})
}

// uploadAttachment stores the "file" form field and returns its URL. The
// client then sends it as an attachment message.
func (e *httpEdge) uploadAttachment(c *gin.Context) {
	if e.srv.uploader == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "attachments are not configured"})
		return
	}
	ctx := c.Request.Context()
	me := auth.UserID(ctx)
	convID := c.Param("id")
	if _, err := e.srv.dir.Get(ctx, convID, me); err != nil {
		abortWithError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, media.MaxUploadSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer f.Close()

	att, err := media.Store(ctx, e.srv.uploader, convID, fh.Filename, f)
	switch {
	case errors.Is(err, media.ErrUnsupportedType):
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	case errors.Is(err, media.ErrTooLarge):
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("upload to %s failed: %v", convID, err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": att.URL, "fileType": att.FileType, "mime": att.MIME})
}

// wsSend is a message sent by the browser over the socket.
type wsSend struct {
	ClientRef string `json:"clientRef"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	FileType  string `json:"fileType,omitempty"`
}

// wsError reports a failed send back to the browser.
type wsError struct {
	Kind      string `json:"kind"`
	ClientRef string `json:"clientRef,omitempty"`
	Error     string `json:"error"`
}

// conversationSocket mirrors Subscribe over a websocket. Inbound frames are
// sends; outbound frames are a snapshot, then conversation events, and error
// frames for sends that failed.
func (e *httpEdge) conversationSocket(c *gin.Context) {
	me := auth.UserID(c.Request.Context())
	convID := c.Param("id")

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()

	sub, err := e.srv.stream.Subscribe(ctx, convID, me)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer sub.Close()

	conn, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade for %s: %v", me, err)
		return
	}
	defer conn.Close()

	failures := make(chan wsError, 8)
	go e.readSends(ctx, cancel, conn, convID, me, failures)

	events := make(chan feed.Event)
	done := make(chan error, 1)
	go func() {
		for {
			ev, err := sub.Next(ctx)
			if err != nil {
				done <- err
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}
	if err := write(&v1.ConversationEvent{Kind: v1.EventSnapshot, Snapshot: toWireMessages(sub.Initial)}); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev := <-events:
			if err := write(toConversationEvent(ev)); err != nil {
				return
			}
		case f := <-failures:
			if err := write(f); err != nil {
				return
			}
		case err := <-done:
			if errors.Is(err, messaging.ErrConversationDeleted) {
				_ = write(&v1.ConversationEvent{Kind: v1.EventConversationDeleted})
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readSends appends every inbound frame until the socket closes, then
// cancels the connection context.
func (e *httpEdge) readSends(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, convID, me string, failures chan<- wsError) {
	defer cancel()
	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in wsSend
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read for %s: %v", me, err)
			}
			return
		}

		var sendErr error
		if e.sends != nil && !e.sends.Allow("user:"+me) {
			sendErr = status.Error(codes.ResourceExhausted, "rate limit exceeded")
		} else {
			_, sendErr = e.srv.stream.Append(ctx, messaging.AppendRequest{
				ConversationID: convID,
				SenderID:       me,
				ClientRef:      in.ClientRef,
				Payload:        messaging.Payload{Text: in.Text, URL: in.URL, FileType: data.FileType(in.FileType)},
			})
		}
		if sendErr == nil {
			continue
		}
		msg := sendErr.Error()
		if st, ok := status.FromError(toStatus(sendErr)); ok {
			msg = st.Message()
		}
		select {
		case failures <- wsError{Kind: "error", ClientRef: in.ClientRef, Error: msg}:
		case <-ctx.Done():
			return
		}
	}
}
