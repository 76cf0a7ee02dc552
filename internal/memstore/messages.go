package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

type msgRecord struct {
	msg data.Message
}

// Messages is the in-memory messages store.
type Messages struct {
	faults *faults

	mu   sync.RWMutex
	byID map[string]*msgRecord
}

// Insert persists msg; ids are unique.
func (s *Messages) Insert(ctx context.Context, msg *data.Message) error {
	if err := s.faults.check(ctx, OpMessageInsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[msg.ID]; ok {
		return data.ErrConflict
	}
	s.byID[msg.ID] = &msgRecord{msg: *msg}
	return nil
}

// List returns a conversation's messages oldest first, keeping the newest
// limit when limit > 0.
func (s *Messages) List(ctx context.Context, conversationID string, limit int64) ([]*data.Message, error) {
	if err := s.faults.check(ctx, OpMessageList); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*data.Message
	for _, r := range s.byID {
		if r.msg.ConversationID == conversationID {
			m := r.msg
			out = append(out, &m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

// Get returns one message of a conversation.
func (s *Messages) Get(ctx context.Context, conversationID, id string) (*data.Message, error) {
	if err := s.faults.check(ctx, OpMessageList); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok || r.msg.ConversationID != conversationID {
		return nil, data.ErrNotFound
	}
	m := r.msg
	return &m, nil
}

// Delete removes a single message.
func (s *Messages) Delete(ctx context.Context, conversationID, id string) error {
	if err := s.faults.check(ctx, OpMessageDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.msg.ConversationID != conversationID {
		return data.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// DeleteByConversation removes all messages of a conversation.
func (s *Messages) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	if err := s.faults.check(ctx, OpMessageDelete); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.byID {
		if r.msg.ConversationID == conversationID {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}
