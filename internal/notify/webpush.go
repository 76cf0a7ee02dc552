package notify

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// PushStore keeps browser push endpoints.
type PushStore interface {
	Upsert(ctx context.Context, sub *data.PushSubscription) error
	ListByUser(ctx context.Context, userID string) ([]*data.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// VAPID holds the application server keys.
type VAPID struct {
	Subscriber string
	PublicKey  string
	PrivateKey string
}

// WebPush forwards notifications to every push endpoint of the recipient.
// Endpoints the push service reports as gone are pruned.
type WebPush struct {
	subs  PushStore
	vapid VAPID
	// client is nil outside tests; webpush-go then uses its own client
	client webpush.HTTPClient
}

// NewWebPush returns a WebPush sender.
func NewWebPush(subs PushStore, vapid VAPID) *WebPush {
	return &WebPush{subs: subs, vapid: vapid}
}

// Register saves a browser subscription for userID.
func (w *WebPush) Register(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	return w.subs.Upsert(ctx, &data.PushSubscription{
		ID:        data.NewID(),
		UserID:    userID,
		Endpoint:  endpoint,
		P256dh:    p256dh,
		Auth:      auth,
		CreatedAt: data.Now(),
	})
}

type pushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	RelatedID string `json:"relatedId,omitempty"`
}

// Push implements Pusher. Per-endpoint failures are logged; only a failure to
// load the endpoints is returned.
func (w *WebPush) Push(ctx context.Context, n *data.Notification) error {
	subs, err := w.subs.ListByUser(ctx, n.RecipientID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(pushPayload{
		Title:     pushTitle(n),
		Body:      truncate(n.Message, 100),
		Type:      string(n.Type),
		RelatedID: n.RelatedID,
	})
	if err != nil {
		return err
	}

	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			HTTPClient:      w.client,
			Subscriber:      w.vapid.Subscriber,
			VAPIDPublicKey:  w.vapid.PublicKey,
			VAPIDPrivateKey: w.vapid.PrivateKey,
			TTL:             30,
		})
		if err != nil {
			log.Printf("notify: web push to %s failed: %v", n.RecipientID, err)
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			if err := w.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				log.Printf("notify: prune push endpoint of %s: %v", n.RecipientID, err)
			}
		case resp.StatusCode >= 400:
			log.Printf("notify: web push to %s rejected with %d", n.RecipientID, resp.StatusCode)
		}
	}
	return nil
}

func pushTitle(n *data.Notification) string {
	name := n.SenderProfile.Username
	if name == "" {
		name = "Someone"
	}
	switch n.Type {
	case data.NotifyNewMessage:
		return name + " sent a message"
	case data.NotifyNewFollower:
		return name + " started following you"
	case data.NotifyLike:
		return name + " liked your post"
	case data.NotifyComment:
		return name + " commented on your post"
	case data.NotifyCarpoolBooking:
		return name + " booked your carpool"
	case data.NotifyEventAttendance:
		return name + " is attending your event"
	}
	return name
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
