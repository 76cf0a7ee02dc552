package memstore

import (
	"context"
	"sync"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

// PushSubscriptions is the in-memory push endpoint store.
type PushSubscriptions struct {
	faults *faults

	mu   sync.RWMutex
	subs []data.PushSubscription
}

// Upsert saves sub keyed by endpoint.
func (s *PushSubscriptions) Upsert(ctx context.Context, sub *data.PushSubscription) error {
	if err := s.faults.check(ctx, OpPushUpsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].Endpoint == sub.Endpoint {
			s.subs[i].UserID = sub.UserID
			s.subs[i].P256dh = sub.P256dh
			s.subs[i].Auth = sub.Auth
			return nil
		}
	}
	s.subs = append(s.subs, *sub)
	return nil
}

// ListByUser returns userID's endpoints.
func (s *PushSubscriptions) ListByUser(ctx context.Context, userID string) ([]*data.PushSubscription, error) {
	if err := s.faults.check(ctx, OpPushUpsert); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*data.PushSubscription
	for i := range s.subs {
		if s.subs[i].UserID == userID {
			sub := s.subs[i]
			out = append(out, &sub)
		}
	}
	return out, nil
}

// DeleteByEndpoint removes an endpoint.
func (s *PushSubscriptions) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if err := s.faults.check(ctx, OpPushDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].Endpoint == endpoint {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return nil
		}
	}
	return nil
}
