package main

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/auth"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/normalize"
	"github.com/PaulBabatuyi/campus-messaging/internal/profiles"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const minPasswordLen = 8

// callerID returns the authenticated user injected by the auth interceptor.
func callerID(ctx context.Context) (string, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", status.Errorf(codes.Unauthenticated, "missing auth claims")
	}
	return claims.UserID, nil
}

// toStatus maps domain and store errors onto gRPC status codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, messaging.ErrSelfConversation),
		errors.Is(err, messaging.ErrInvalidUser),
		errors.Is(err, messaging.ErrInvalidPayload),
		errors.Is(err, profiles.ErrInvalidProfile),
		errors.Is(err, writegate.ErrInvalid):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, messaging.ErrUserNotFound),
		errors.Is(err, messaging.ErrConversationNotFound),
		errors.Is(err, messaging.ErrMessageNotFound),
		errors.Is(err, messaging.ErrConversationDeleted):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, messaging.ErrNotParticipant),
		errors.Is(err, messaging.ErrNotMessageOwner):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, feed.ErrSlowConsumer):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch writegate.KindOf(err) {
	case writegate.KindPermissionDenied:
		return status.Error(codes.PermissionDenied, err.Error())
	case writegate.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case writegate.KindConflict:
		return status.Error(codes.AlreadyExists, err.Error())
	case writegate.KindUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	case writegate.KindInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	}

	switch {
	case errors.Is(err, data.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, data.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, data.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, data.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	}
	log.Printf("api: internal error: %v", err)
	return status.Error(codes.Internal, "internal error")
}

func (s *Server) issueToken(user *data.User) (*v1.AuthResponse, error) {
	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to generate token: %v", err)
	}
	return &v1.AuthResponse{Token: token, UserID: user.ID, ExpiresAt: expiresAt}, nil
}

// Register handles user registration: hashes password, stores user, returns JWT token
func (s *Server) Register(ctx context.Context, req *v1.RegisterRequest) (*v1.AuthResponse, error) {
	email := normalize.Email(req.GetEmail())
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return nil, status.Errorf(codes.InvalidArgument, "password must be at least %d characters", minPasswordLen)
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, status.Errorf(codes.InvalidArgument, "username is required")
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to hash password: %v", err)
	}

	user, err := s.users.CreateUser(ctx, email, hashed, username)
	if err != nil {
		if errors.Is(err, data.ErrUserExists) {
			return nil, status.Errorf(codes.AlreadyExists, "email already registered")
		}
		log.Printf("create user failed: %v", err)
		return nil, status.Errorf(codes.Internal, "failed to create user")
	}
	return s.issueToken(user)
}

// Login authenticates a user and returns a JWT token
func (s *Server) Login(ctx context.Context, req *v1.LoginRequest) (*v1.AuthResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, req.GetEmail())
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return nil, status.Errorf(codes.Unauthenticated, "invalid credentials")
		}
		return nil, toStatus(err)
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "invalid credentials")
	}
	return s.issueToken(user)
}

// UpdateProfile edits the caller's profile; snapshots elsewhere follow in the background.
func (s *Server) UpdateProfile(ctx context.Context, req *v1.UpdateProfileRequest) (*v1.Profile, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.profiles.Update(ctx, me, req.Username, req.ProfilePicture)
	if err != nil {
		return nil, toStatus(err)
	}
	return &v1.Profile{UserID: user.ID, Username: user.Username, ProfilePicture: user.ProfilePicture}, nil
}

func (s *Server) GetOrCreateConversation(ctx context.Context, req *v1.GetOrCreateConversationRequest) (*v1.GetOrCreateConversationResponse, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := s.dir.GetOrCreate(ctx, me, req.OtherUserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &v1.GetOrCreateConversationResponse{ConversationID: id}, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Server) ListConversations(ctx context.Context, _ *v1.ListConversationsRequest) (*v1.ListConversationsResponse, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	convs, err := s.dir.List(ctx, me)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &v1.ListConversationsResponse{
		Conversations: make([]*v1.Conversation, 0, len(convs)),
		UnreadCount:   messaging.UnreadCount(convs, me),
	}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toWireConversation(c, me))
	}
	return resp, nil
}

func (s *Server) DeleteConversation(ctx context.Context, req *v1.DeleteConversationRequest) (*v1.Empty, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.dir.Delete(ctx, req.ConversationID, me); err != nil {
		return nil, toStatus(err)
	}
	return &v1.Empty{}, nil
}

// SendMessage appends to a conversation. The stored message is returned
// with the caller's clientRef so the optimistic copy can be reconciled.
func (s *Server) SendMessage(ctx context.Context, req *v1.SendMessageRequest) (*v1.Message, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := s.stream.Append(ctx, messaging.AppendRequest{
		ConversationID: req.ConversationID,
		SenderID:       me,
		ClientRef:      req.ClientRef,
		Payload: messaging.Payload{
			Text:     req.Text,
			URL:      req.URL,
			FileType: data.FileType(req.FileType),
		},
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toWireMessage(msg), nil
}

func (s *Server) GetHistory(ctx context.Context, req *v1.GetHistoryRequest) (*v1.GetHistoryResponse, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := s.stream.History(ctx, req.ConversationID, me, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &v1.GetHistoryResponse{Messages: toWireMessages(msgs)}, nil
}

func (s *Server) DeleteMessage(ctx context.Context, req *v1.DeleteMessageRequest) (*v1.Empty, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.stream.DeleteMessage(ctx, req.ConversationID, req.MessageID, me); err != nil {
		return nil, toStatus(err)
	}
	return &v1.Empty{}, nil
}

// MarkRead records that the caller has seen the conversation.
func (s *Server) MarkRead(ctx context.Context, req *v1.MarkReadRequest) (*v1.MarkReadResponse, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.dir.Get(ctx, req.ConversationID, me); err != nil {
		return nil, toStatus(err)
	}
	cleared, err := s.reads.ClearIfApplicable(ctx, req.ConversationID, me)
	if err != nil {
		return nil, toStatus(err)
	}
	return &v1.MarkReadResponse{Cleared: cleared}, nil
}

func (s *Server) ListNotifications(ctx context.Context, req *v1.ListNotificationsRequest) (*v1.ListNotificationsResponse, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	ns, err := s.notifs.List(ctx, me, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &v1.ListNotificationsResponse{Notifications: make([]*v1.Notification, 0, len(ns))}
	for _, n := range ns {
		resp.Notifications = append(resp.Notifications, toWireNotification(n))
	}
	return resp, nil
}

func (s *Server) MarkNotificationRead(ctx context.Context, req *v1.MarkNotificationReadRequest) (*v1.Empty, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.notifs.MarkRead(ctx, me, req.NotificationID); err != nil {
		return nil, toStatus(err)
	}
	return &v1.Empty{}, nil
}

// RegisterPushSubscription stores a browser push endpoint for the caller.
func (s *Server) RegisterPushSubscription(ctx context.Context, req *v1.RegisterPushSubscriptionRequest) (*v1.Empty, error) {
	me, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if s.push == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "push notifications are not configured")
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		return nil, status.Errorf(codes.InvalidArgument, "endpoint, p256dh and auth are required")
	}
	if err := s.push.Register(ctx, me, req.Endpoint, req.P256dh, req.Auth); err != nil {
		return nil, toStatus(err)
	}
	return &v1.Empty{}, nil
}
