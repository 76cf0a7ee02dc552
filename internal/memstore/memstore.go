// Package memstore is an in-memory implementation of the data stores. It keeps
// the semantics of the Mongo stores (unique pair keys, conditional summary
// updates, ordering) and lets tests inject store failures per operation.
package memstore

import (
	"context"
	"sync"
)

// Operation names accepted by Fail.
const (
	OpUserCreate          = "users.create"
	OpUserGet             = "users.get"
	OpUserUpdate          = "users.update"
	OpConversationGet     = "conversations.get"
	OpConversationList    = "conversations.list"
	OpConversationUpsert  = "conversations.upsert"
	OpConversationSummary = "conversations.summary"
	OpConversationRead    = "conversations.read"
	OpConversationDelete  = "conversations.delete"
	OpConversationRefresh = "conversations.refresh"
	OpMessageInsert       = "messages.insert"
	OpMessageList         = "messages.list"
	OpMessageDelete       = "messages.delete"
	OpNotificationInsert  = "notifications.insert"
	OpNotificationList    = "notifications.list"
	OpNotificationUpdate  = "notifications.update"
	OpPushUpsert          = "push.upsert"
	OpPushDelete          = "push.delete"
)

// DB groups one in-memory instance of every store.
type DB struct {
	Users             *Users
	Conversations     *Conversations
	Messages          *Messages
	Notifications     *Notifications
	PushSubscriptions *PushSubscriptions

	faults *faults
}

// New returns an empty in-memory database.
func New() *DB {
	f := &faults{errs: make(map[string]error)}
	return &DB{
		Users:             &Users{faults: f, byID: make(map[string]*userRecord)},
		Conversations:     &Conversations{faults: f, byID: make(map[string]*convRecord)},
		Messages:          &Messages{faults: f, byID: make(map[string]*msgRecord)},
		Notifications:     &Notifications{faults: f},
		PushSubscriptions: &PushSubscriptions{faults: f},
		faults:            f,
	}
}

// Fail makes every later call of op return err until Heal is called.
func (db *DB) Fail(op string, err error) {
	db.faults.mu.Lock()
	defer db.faults.mu.Unlock()
	db.faults.errs[op] = err
}

// Heal removes an injected failure.
func (db *DB) Heal(op string) {
	db.faults.mu.Lock()
	defer db.faults.mu.Unlock()
	delete(db.faults.errs, op)
}

type faults struct {
	mu   sync.Mutex
	errs map[string]error
}

// check returns the injected error for op, or the context error.
func (f *faults) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

// seq orders records that compare equal on their timestamps.
type seq struct {
	mu sync.Mutex
	n  uint64
}

func (s *seq) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}
