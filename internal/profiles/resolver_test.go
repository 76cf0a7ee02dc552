package profiles

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
	"github.com/PaulBabatuyi/campus-messaging/internal/memstore"
	"github.com/PaulBabatuyi/campus-messaging/internal/writegate"
)

type countingSource struct {
	Source
	calls atomic.Int64
}

func (c *countingSource) GetUserByID(ctx context.Context, id string) (*data.User, error) {
	c.calls.Add(1)
	return c.Source.GetUserByID(ctx, id)
}

func seedUser(db *memstore.DB, id, username string) {
	db.Users.Put(data.User{ID: id, Email: id + "@example.com", Username: username})
}

func TestResolver_CachesWithinTTL(t *testing.T) {
	db := memstore.New()
	seedUser(db, "alice", "Alice")
	src := &countingSource{Source: db.Users}

	cache := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	r := NewResolver(src, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := r.Snapshot(ctx, "alice")
		if err != nil || snap.Username != "Alice" {
			t.Fatalf("unexpected snapshot %+v, %v", snap, err)
		}
	}
	if got := src.calls.Load(); got != 1 {
		t.Fatalf("expected 1 source call within TTL, got %d", got)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Snapshot(ctx, "alice"); err != nil {
		t.Fatalf("snapshot after expiry: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after TTL, got %d calls", got)
	}
}

func TestResolver_MissingUser(t *testing.T) {
	r := NewResolver(memstore.New().Users, nil, 0)
	if _, err := r.Snapshot(context.Background(), "ghost"); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolver_Snapshots(t *testing.T) {
	db := memstore.New()
	seedUser(db, "a", "A")
	seedUser(db, "b", "B")
	r := NewResolver(db.Users, NewMemoryCache(), time.Minute)

	snaps, err := r.Snapshots(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if snaps["a"].Username != "A" || snaps["b"].Username != "B" {
		t.Fatalf("unexpected snapshots %+v", snaps)
	}
	if _, err := r.Snapshots(context.Background(), "a", "ghost"); !errors.Is(err, data.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for one missing id, got %v", err)
	}
}

// gatedSource reads the user, then holds the first call until release is
// closed or its context ends.
type gatedSource struct {
	Source
	read    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSource(src Source) *gatedSource {
	return &gatedSource{Source: src, read: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSource) GetUserByID(ctx context.Context, id string) (*data.User, error) {
	u, err := g.Source.GetUserByID(ctx, id)
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return u, err
	}
	close(g.read)
	select {
	case <-g.release:
		return u, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestResolver_SharedLookupOutlivesCanceledCaller(t *testing.T) {
	db := memstore.New()
	seedUser(db, "alice", "Alice")
	src := newGatedSource(db.Users)
	r := NewResolver(src, NewMemoryCache(), time.Minute)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := r.Snapshot(ctxA, "alice")
		errA <- err
	}()
	<-src.read

	type result struct {
		snap data.ProfileSnapshot
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		snap, err := r.Snapshot(context.Background(), "alice")
		resB <- result{snap, err}
	}()

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the canceled caller to see context.Canceled, got %v", err)
	}
	close(src.release)

	got := <-resB
	if got.err != nil || got.snap.Username != "Alice" {
		t.Fatalf("caller with a live context got %+v, %v", got.snap, got.err)
	}
}

func TestUpdater_InFlightLookupDoesNotCacheOldSnapshot(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	seedUser(db, "alice", "Alice")
	src := newGatedSource(db.Users)
	gw := writegate.New(writegate.NewBus())
	r := NewResolver(src, NewMemoryCache(), time.Hour)
	u := NewUpdater(db.Users, r, db.Conversations, db.Notifications, gw)

	stale := make(chan data.ProfileSnapshot, 1)
	go func() {
		snap, _ := r.Snapshot(ctx, "alice")
		stale <- snap
	}()
	<-src.read

	if _, err := u.Update(ctx, "alice", "Alicia", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	close(src.release)
	if snap := <-stale; snap.Username != "Alice" {
		t.Fatalf("expected the in-flight lookup to return what it read, got %+v", snap)
	}
	gw.Wait()

	snap, err := r.Snapshot(ctx, "alice")
	if err != nil || snap.Username != "Alicia" {
		t.Fatalf("expected the edited username after Update, got %+v, %v", snap, err)
	}
}

func TestUpdater_InvalidatesAndSweeps(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	seedUser(db, "alice", "Alice")
	seedUser(db, "bob", "Bob")

	_ = db.Conversations.Insert(ctx, &data.Conversation{
		ID:             "c1",
		PairKey:        "alice_bob",
		ParticipantIDs: []string{"alice", "bob"},
		Participants: map[string]data.ProfileSnapshot{
			"alice": {Username: "Alice"},
			"bob":   {Username: "Bob"},
		},
	})
	_ = db.Notifications.Insert(ctx, &data.Notification{ID: "n1", SenderID: "alice", RecipientID: "bob", SenderProfile: data.ProfileSnapshot{Username: "Alice"}})

	gw := writegate.New(writegate.NewBus())
	r := NewResolver(db.Users, NewMemoryCache(), time.Hour)
	if _, err := r.Snapshot(ctx, "alice"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	u := NewUpdater(db.Users, r, db.Conversations, db.Notifications, gw)
	if _, err := u.Update(ctx, "alice", "  Alice B ", "https://img/a.png"); err != nil {
		t.Fatalf("update: %v", err)
	}
	gw.Wait()

	snap, _ := r.Snapshot(ctx, "alice")
	if snap.Username != "Alice B" {
		t.Fatalf("expected cache to be invalidated, got %+v", snap)
	}
	conv, _ := db.Conversations.Get(ctx, "c1")
	if conv.Participants["alice"].Username != "Alice B" || conv.Participants["alice"].ProfilePicture != "https://img/a.png" {
		t.Fatalf("expected conversation snapshot to be swept, got %+v", conv.Participants["alice"])
	}
	ns, _ := db.Notifications.ListByRecipient(ctx, "bob", 0)
	if len(ns) != 1 || ns[0].SenderProfile.Username != "Alice B" {
		t.Fatalf("expected notification snapshot to be swept, got %+v", ns)
	}
}

func TestUpdater_SweepFailureGoesToBus(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	seedUser(db, "alice", "Alice")
	db.Fail(memstore.OpConversationRefresh, data.ErrUnavailable)

	bus := writegate.NewBus()
	var mu sync.Mutex
	var got []*writegate.Error
	bus.Subscribe(func(e *writegate.Error) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	gw := writegate.New(bus)
	u := NewUpdater(db.Users, NewResolver(db.Users, nil, 0), db.Conversations, db.Notifications, gw)

	if _, err := u.Update(ctx, "alice", "Al", ""); err != nil {
		t.Fatalf("update should succeed even if the sweep fails: %v", err)
	}
	gw.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != writegate.KindUnavailable {
		t.Fatalf("expected one unavailable sweep failure, got %+v", got)
	}
}

func TestUpdater_RejectsEmptyUsername(t *testing.T) {
	db := memstore.New()
	u := NewUpdater(db.Users, NewResolver(db.Users, nil, 0), db.Conversations, db.Notifications, writegate.New(writegate.NewBus()))
	if _, err := u.Update(context.Background(), "alice", "   ", ""); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestValkeyCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		t.Skip("VALKEY_ADDR not set; skipping valkey test")
	}
	client, err := DialValkey(addr)
	if err != nil {
		t.Fatalf("dial valkey: %v", err)
	}
	defer client.Close()

	c := NewValkeyCache(client)
	ctx := context.Background()
	id := data.NewID()

	if _, ok, err := c.Get(ctx, id); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, id, data.ProfileSnapshot{Username: "V"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	snap, ok, err := c.Get(ctx, id)
	if err != nil || !ok || snap.Username != "V" {
		t.Fatalf("expected hit, got %+v ok=%v err=%v", snap, ok, err)
	}
	if err := c.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
