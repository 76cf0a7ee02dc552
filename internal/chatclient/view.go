package chatclient

import (
	"context"
	"errors"
	"io"
	"sync"

	v1 "github.com/PaulBabatuyi/campus-messaging/api/messaging/v1"
	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/messaging"
)

// ErrConversationDeleted is reported by Err once the conversation is gone.
var ErrConversationDeleted = errors.New("chatclient: conversation deleted")

// View is an open conversation: a live subscription feeding a Timeline.
type View struct {
	client         *Client
	conversationID string
	timeline       *messaging.Timeline

	changes chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error
}

// Open subscribes to a conversation and returns its view. The snapshot is
// loaded before Open returns.
func (c *Client) Open(ctx context.Context, conversationID string) (*View, error) {
	actx, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	sctx, cancel := context.WithCancel(actx)
	stream, err := c.rpc.Subscribe(sctx, &v1.SubscribeRequest{ConversationID: conversationID})
	if err != nil {
		cancel()
		return nil, err
	}
	first, err := stream.Recv()
	if err != nil {
		cancel()
		return nil, err
	}

	initial := make([]*data.Message, 0, len(first.Snapshot))
	for _, m := range first.Snapshot {
		initial = append(initial, fromWire(m))
	}
	v := &View{
		client:         c,
		conversationID: conversationID,
		timeline:       messaging.NewTimeline(initial),
		changes:        make(chan struct{}, 1),
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	go v.run(stream)
	return v, nil
}

type eventStream interface {
	Recv() (*v1.ConversationEvent, error)
}

func (v *View) run(stream eventStream) {
	defer close(v.done)
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			v.finish(err)
			return
		}
		switch ev.Kind {
		case v1.EventMessageAdded:
			if ev.Message != nil {
				v.timeline.Confirm(fromWire(ev.Message))
			}
		case v1.EventMessageDeleted:
			v.timeline.Remove(ev.MessageID)
		case v1.EventConversationDeleted:
			v.finish(ErrConversationDeleted)
			return
		}
		v.notify()
	}
}

func (v *View) finish(err error) {
	v.mu.Lock()
	if v.err == nil {
		v.err = err
	}
	v.mu.Unlock()
	v.notify()
}

func (v *View) notify() {
	select {
	case v.changes <- struct{}{}:
	default:
	}
}

// Changes signals that Entries may have changed. Signals coalesce.
func (v *View) Changes() <-chan struct{} { return v.changes }

// Entries returns the timeline in display order.
func (v *View) Entries() []messaging.Entry { return v.timeline.Entries() }

// Err returns why the live subscription ended, if it has.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Done is closed when the subscription ends.
func (v *View) Done() <-chan struct{} { return v.done }

// Send shows p as pending and sends it. On failure the entry stays in the
// timeline as failed and can be retried; the error is also returned.
func (v *View) Send(ctx context.Context, p messaging.Payload) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	ref := v.timeline.AddPending(v.client.UserID(), p)
	v.notify()
	return ref, v.deliver(ctx, ref, p)
}

// Retry resends a failed entry.
func (v *View) Retry(ctx context.Context, ref string) error {
	p, ok := v.timeline.Retry(ref)
	if !ok {
		return nil
	}
	v.notify()
	return v.deliver(ctx, ref, p)
}

func (v *View) deliver(ctx context.Context, ref string, p messaging.Payload) error {
	actx, err := v.client.authed(ctx)
	if err == nil {
		var msg *v1.Message
		msg, err = v.client.rpc.SendMessage(actx, &v1.SendMessageRequest{
			ConversationID: v.conversationID,
			ClientRef:      ref,
			Text:           p.Text,
			URL:            p.URL,
			FileType:       string(p.FileType),
		})
		if err == nil {
			v.timeline.Confirm(fromWire(msg))
		}
	}
	if err != nil {
		v.timeline.Fail(ref, err)
	}
	v.notify()
	return err
}

// Discard drops a pending or failed entry from the view.
func (v *View) Discard(ref string) {
	v.timeline.Discard(ref)
	v.notify()
}

// Close ends the subscription.
func (v *View) Close() {
	v.cancel()
	<-v.done
}
