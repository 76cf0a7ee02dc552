// Package chatclient is a Go client for the messaging service. Conversation
// views keep an optimistic timeline: sends show up at once as pending and are
// reconciled with the server copy by client ref.
package chatclient

import (
	"context"
	"errors"
	"sync"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ErrNotLoggedIn is returned by calls that need a session.
var ErrNotLoggedIn = errors.New("chatclient: not logged in")

// Client is an authenticated session against the service.
type Client struct {
	rpc   v1.MessagingServiceClient
	close func() error

	mu     sync.RWMutex
	token  string
	userID string
}

// Dial connects to addr. Without options the connection is plaintext.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	c := New(conn)
	c.close = conn.Close
	return c, nil
}

// New returns a Client over an existing connection.
func New(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: v1.NewMessagingServiceClient(cc)}
}

// Close releases a connection opened by Dial.
func (c *Client) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// UserID is the logged in user, or "".
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetSession reuses a token obtained earlier.
func (c *Client) SetSession(token, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.userID = token, userID
}

func (c *Client) session(resp *v1.AuthResponse) {
	c.SetSession(resp.Token, resp.UserID)
}

func (c *Client) authed(ctx context.Context) (context.Context, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token), nil
}

// Register creates an account and starts a session.
func (c *Client) Register(ctx context.Context, email, password, username string) (*v1.AuthResponse, error) {
	resp, err := c.rpc.Register(ctx, &v1.RegisterRequest{Email: email, Password: password, Username: username})
	if err != nil {
		return nil, err
	}
	c.session(resp)
	return resp, nil
}

// Login starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*v1.AuthResponse, error) {
	resp, err := c.rpc.Login(ctx, &v1.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	c.session(resp)
	return resp, nil
}

// Conversation returns the id of the conversation with otherUserID,
// creating it if needed.
func (c *Client) Conversation(ctx context.Context, otherUserID string) (string, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return "", err
	}
	resp, err := c.rpc.GetOrCreateConversation(ctx, &v1.GetOrCreateConversationRequest{OtherUserID: otherUserID})
	if err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// Conversations lists the session's conversations, most recent first.
func (c *Client) Conversations(ctx context.Context) (*v1.ListConversationsResponse, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	return c.rpc.ListConversations(ctx, &v1.ListConversationsRequest{})
}

// Notifications lists the newest notifications of the session's inbox.
func (c *Client) Notifications(ctx context.Context, limit int64) ([]*v1.Notification, error) {
	ctx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.rpc.ListNotifications(ctx, &v1.ListNotificationsRequest{Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

// WatchErrors streams failed writes made for this session until ctx ends.
func (c *Client) WatchErrors(ctx context.Context, fn func(*v1.WriteError)) error {
	ctx, err := c.authed(ctx)
	if err != nil {
		return err
	}
	stream, err := c.rpc.WatchErrors(ctx, &v1.WatchErrorsRequest{})
	if err != nil {
		return err
	}
	for {
		we, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(we)
	}
}

// fromWire converts a wire message into the stored shape.
func fromWire(m *v1.Message) *data.Message {
	return &data.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ClientRef:      m.ClientRef,
		CreatedAt:      m.CreatedAt,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		VideoURL:       m.VideoURL,
		AudioURL:       m.AudioURL,
		FileType:       data.FileType(m.FileType),
	}
}
