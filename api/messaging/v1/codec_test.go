package v1

import (
	"testing"
	"time"

	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatalf("codec %q not registered", CodecName)
	}

	in := &Message{ID: "m1", ConversationID: "c1", SenderID: "u1", Text: "hi", CreatedAt: time.UnixMilli(1700000000000).UTC()}
	b, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Message
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != in.ID || out.Text != in.Text || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestServiceDescCoversServer(t *testing.T) {
	if got := len(MessagingService_ServiceDesc.Methods); got != 13 {
		t.Fatalf("expected 13 unary methods, got %d", got)
	}
	for _, s := range MessagingService_ServiceDesc.Streams {
		if !s.ServerStreams || s.ClientStreams {
			t.Fatalf("stream %s should be server-streaming only", s.StreamName)
		}
	}
}

func TestGetEmailNilSafe(t *testing.T) {
	var r *LoginRequest
	if r.GetEmail() != "" {
		t.Fatal("nil request should return empty email")
	}
}
