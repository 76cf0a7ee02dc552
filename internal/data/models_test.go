package data

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestMessageBefore(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	a := &Message{ID: "a", CreatedAt: at}
	b := &Message{ID: "b", CreatedAt: at}
	later := &Message{ID: "0", CreatedAt: at.Add(time.Millisecond)}

	if !a.Before(b) || b.Before(a) {
		t.Fatal("equal timestamps should order by id")
	}
	if !b.Before(later) || later.Before(a) {
		t.Fatal("timestamp should dominate id")
	}
}

func TestConversationParticipants(t *testing.T) {
	c := &Conversation{ParticipantIDs: []string{"alice", "bob"}}
	if !c.HasParticipant("bob") || c.HasParticipant("carol") {
		t.Fatal("HasParticipant wrong")
	}
	if c.Other("alice") != "bob" || c.Other("bob") != "alice" {
		t.Fatal("Other wrong")
	}
}

func TestTypesValid(t *testing.T) {
	if !FileAudio.Valid() || FileType("pdf").Valid() {
		t.Fatal("FileType.Valid wrong")
	}
	if !NotifyCarpoolBooking.Valid() || NotificationType("poke").Valid() {
		t.Fatal("NotificationType.Valid wrong")
	}
}

func TestTranslate(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	cases := []struct {
		in   error
		want error
	}{
		{mongo.ErrNoDocuments, ErrNotFound},
		{dup, ErrConflict},
		{context.Canceled, context.Canceled},
		{fmt.Errorf("op: %w", context.DeadlineExceeded), context.DeadlineExceeded},
	}
	for _, tc := range cases {
		if got := translate(tc.in); !errors.Is(got, tc.want) {
			t.Fatalf("translate(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if translate(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}
