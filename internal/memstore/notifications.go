package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

// Notifications is the in-memory inbox store.
type Notifications struct {
	faults *faults

	mu    sync.RWMutex
	items []data.Notification
}

// Insert adds n to its recipient's inbox.
func (s *Notifications) Insert(ctx context.Context, n *data.Notification) error {
	if err := s.faults.check(ctx, OpNotificationInsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, *n)
	return nil
}

// ListByRecipient returns the newest notifications first.
func (s *Notifications) ListByRecipient(ctx context.Context, recipientID string, limit int64) ([]*data.Notification, error) {
	if err := s.faults.check(ctx, OpNotificationList); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*data.Notification
	for i := range s.items {
		if s.items[i].RecipientID == recipientID {
			n := s.items[i]
			out = append(out, &n)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead flips the read flag of one notification.
func (s *Notifications) MarkRead(ctx context.Context, recipientID, id string) error {
	if err := s.faults.check(ctx, OpNotificationUpdate); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].RecipientID == recipientID {
			s.items[i].Read = true
			return nil
		}
	}
	return data.ErrNotFound
}

// RefreshSender rewrites the sender snapshot on userID's notifications.
func (s *Notifications) RefreshSender(ctx context.Context, userID string, snap data.ProfileSnapshot) (int64, error) {
	if err := s.faults.check(ctx, OpNotificationUpdate); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.items {
		if s.items[i].SenderID == userID && s.items[i].SenderProfile != snap {
			s.items[i].SenderProfile = snap
			n++
		}
	}
	return n, nil
}
