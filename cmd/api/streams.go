package main

import (
	"errors"
	"log"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/feed"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
	"google.golang.org/grpc"
)

// errorBuffer bounds the write failures queued for one WatchErrors stream.
const errorBuffer = 32

// Subscribe streams a snapshot of the conversation followed by live changes.
// Opening it marks the conversation as seen by the caller.
func (s *Server) Subscribe(req *v1.SubscribeRequest, stream grpc.ServerStreamingServer[v1.ConversationEvent]) error {
	ctx := stream.Context()
	me, err := callerID(ctx)
	if err != nil {
		return err
	}

	sub, err := s.stream.Subscribe(ctx, req.ConversationID, me)
	if err != nil {
		return toStatus(err)
	}
	defer sub.Close()

	if err := stream.Send(&v1.ConversationEvent{Kind: v1.EventSnapshot, Snapshot: toWireMessages(sub.Initial)}); err != nil {
		return err
	}
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, messaging.ErrConversationDeleted) {
				return stream.Send(&v1.ConversationEvent{Kind: v1.EventConversationDeleted})
			}
			if ctx.Err() != nil {
				return nil
			}
			return toStatus(err)
		}
		if err := stream.Send(toConversationEvent(ev)); err != nil {
			return err
		}
	}
}

// WatchConversations streams the caller's conversation list and its changes.
func (s *Server) WatchConversations(_ *v1.WatchConversationsRequest, stream grpc.ServerStreamingServer[v1.InboxEvent]) error {
	ctx := stream.Context()
	me, err := callerID(ctx)
	if err != nil {
		return err
	}

	sub, err := s.stream.WatchInbox(ctx, me)
	if err != nil {
		return toStatus(err)
	}
	defer sub.Close()

	snapshot := make([]*v1.Conversation, 0, len(sub.Initial))
	for _, c := range sub.Initial {
		snapshot = append(snapshot, toWireConversation(c, me))
	}
	if err := stream.Send(&v1.InboxEvent{Kind: v1.EventSnapshot, Snapshot: snapshot}); err != nil {
		return err
	}
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return toStatus(err)
		}
		if err := stream.Send(toInboxEvent(ev, me)); err != nil {
			return err
		}
	}
}

// WatchNotifications streams changes to the caller's notification inbox.
func (s *Server) WatchNotifications(_ *v1.WatchNotificationsRequest, stream grpc.ServerStreamingServer[v1.NotificationEvent]) error {
	ctx := stream.Context()
	me, err := callerID(ctx)
	if err != nil {
		return err
	}

	sink, cancel := s.hub.Subscribe(feed.NotificationsTopic(me), feed.DefaultBuffer)
	defer cancel()
	for {
		select {
		case ev := <-sink.C():
			if err := stream.Send(toNotificationEvent(ev)); err != nil {
				return err
			}
		case <-sink.Dropped():
			return toStatus(feed.ErrSlowConsumer)
		case <-ctx.Done():
			return nil
		}
	}
}

// WatchErrors streams failed writes made on the caller's behalf, including
// fire-and-forget ones the caller never saw an error for.
func (s *Server) WatchErrors(_ *v1.WatchErrorsRequest, stream grpc.ServerStreamingServer[v1.WriteError]) error {
	ctx := stream.Context()
	me, err := callerID(ctx)
	if err != nil {
		return err
	}

	errs := make(chan *writegate.Error, errorBuffer)
	unsubscribe := s.gateway.Bus().Subscribe(func(e *writegate.Error) {
		if e.Actor != me {
			return
		}
		select {
		case errs <- e:
		default:
			log.Printf("api: error stream for %s full, dropping %s", me, e.Path)
		}
	})
	defer unsubscribe()

	for {
		select {
		case e := <-errs:
			if err := stream.Send(toWireError(e)); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}
