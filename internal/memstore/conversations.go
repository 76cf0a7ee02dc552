package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

type convRecord struct {
	conv data.Conversation
	seq  uint64
}

// Conversations is the in-memory conversations store. Pair keys are unique
// across records, like the partial unique index in Mongo.
type Conversations struct {
	faults *faults
	seq    seq

	mu   sync.RWMutex
	byID map[string]*convRecord
}

func cloneConversation(c *data.Conversation) *data.Conversation {
	out := *c
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	if c.Participants != nil {
		out.Participants = make(map[string]data.ProfileSnapshot, len(c.Participants))
		for k, v := range c.Participants {
			out.Participants[k] = v
		}
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		out.LastMessage = &lm
	}
	if c.LastReadAt != nil {
		out.LastReadAt = make(map[string]time.Time, len(c.LastReadAt))
		for k, v := range c.LastReadAt {
			out.LastReadAt[k] = v
		}
	}
	return &out
}

// Insert stores c verbatim. Tests use it to seed legacy records without a
// pair key. A second record with the same non-empty pair key is rejected.
func (s *Conversations) Insert(ctx context.Context, c *data.Conversation) error {
	if err := s.faults.check(ctx, OpConversationUpsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; ok {
		return data.ErrConflict
	}
	if c.PairKey != "" && s.findByPairKey(c.PairKey) != nil {
		return data.ErrConflict
	}
	s.byID[c.ID] = &convRecord{conv: *cloneConversation(c), seq: s.seq.next()}
	return nil
}

// Get returns one conversation by id.
func (s *Conversations) Get(ctx context.Context, id string) (*data.Conversation, error) {
	if err := s.faults.check(ctx, OpConversationGet); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return cloneConversation(&r.conv), nil
}

func (s *Conversations) findByPairKey(key string) *convRecord {
	for _, r := range s.byID {
		if r.conv.PairKey == key {
			return r
		}
	}
	return nil
}

// FindByPairKey returns the conversation stamped with key.
func (s *Conversations) FindByPairKey(ctx context.Context, key string) (*data.Conversation, error) {
	if err := s.faults.check(ctx, OpConversationGet); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.findByPairKey(key); r != nil {
		return cloneConversation(&r.conv), nil
	}
	return nil, data.ErrNotFound
}

// ListByParticipant returns userID's conversations, most recently updated
// first, ties oldest created first.
func (s *Conversations) ListByParticipant(ctx context.Context, userID string) ([]*data.Conversation, error) {
	if err := s.faults.check(ctx, OpConversationList); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var recs []*convRecord
	for _, r := range s.byID {
		if r.conv.HasParticipant(userID) {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].conv, recs[j].conv
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return recs[i].seq < recs[j].seq
	})
	out := make([]*data.Conversation, 0, len(recs))
	for _, r := range recs {
		out = append(out, cloneConversation(&r.conv))
	}
	s.mu.RUnlock()
	return out, nil
}

// UpsertPair creates conv unless its pair key is taken, atomically.
func (s *Conversations) UpsertPair(ctx context.Context, conv *data.Conversation) (*data.Conversation, bool, error) {
	if err := s.faults.check(ctx, OpConversationUpsert); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r := s.findByPairKey(conv.PairKey); r != nil {
		return cloneConversation(&r.conv), false, nil
	}
	s.byID[conv.ID] = &convRecord{conv: *cloneConversation(conv), seq: s.seq.next()}
	return cloneConversation(conv), true, nil
}

// AdoptPairKey stamps key on a record that has none.
func (s *Conversations) AdoptPairKey(ctx context.Context, id, key string) error {
	if err := s.faults.check(ctx, OpConversationUpsert); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.conv.PairKey != "" || s.findByPairKey(key) != nil {
		return data.ErrConflict
	}
	r.conv.PairKey = key
	return nil
}

// UpdateSummary applies last unless the stored summary is newer.
func (s *Conversations) UpdateSummary(ctx context.Context, id string, last data.LastMessage) (bool, error) {
	if err := s.faults.check(ctx, OpConversationSummary); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return false, data.ErrNotFound
	}
	if lm := r.conv.LastMessage; lm != nil && lm.Timestamp.After(last.Timestamp) {
		return false, nil
	}
	lm := last
	r.conv.LastMessage = &lm
	r.conv.UpdatedAt = last.Timestamp
	r.conv.Unread = true
	if r.conv.LastReadAt == nil {
		r.conv.LastReadAt = make(map[string]time.Time)
	}
	r.conv.LastReadAt[last.SenderID] = last.Timestamp
	return true, nil
}

// ClearUnread clears the flag when the last message came from someone else.
func (s *Conversations) ClearUnread(ctx context.Context, id, viewerID string) (bool, error) {
	if err := s.faults.check(ctx, OpConversationRead); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || !r.conv.Unread {
		return false, nil
	}
	if r.conv.LastMessage != nil && r.conv.LastMessage.SenderID == viewerID {
		return false, nil
	}
	r.conv.Unread = false
	return true, nil
}

// MarkReadAt raises viewerID's lastReadAt to at.
func (s *Conversations) MarkReadAt(ctx context.Context, id, viewerID string, at time.Time) error {
	if err := s.faults.check(ctx, OpConversationRead); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return data.ErrNotFound
	}
	if r.conv.LastReadAt == nil {
		r.conv.LastReadAt = make(map[string]time.Time)
	}
	if at.After(r.conv.LastReadAt[viewerID]) {
		r.conv.LastReadAt[viewerID] = at
	}
	return nil
}

// Delete removes a conversation.
func (s *Conversations) Delete(ctx context.Context, id string) error {
	if err := s.faults.check(ctx, OpConversationDelete); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return data.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

// RefreshParticipant rewrites userID's snapshot everywhere.
func (s *Conversations) RefreshParticipant(ctx context.Context, userID string, snap data.ProfileSnapshot) (int64, error) {
	if err := s.faults.check(ctx, OpConversationRefresh); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.byID {
		if !r.conv.HasParticipant(userID) {
			continue
		}
		if r.conv.Participants == nil {
			r.conv.Participants = make(map[string]data.ProfileSnapshot)
		}
		if r.conv.Participants[userID] != snap {
			r.conv.Participants[userID] = snap
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored conversations.
func (s *Conversations) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
