// Package profiles serves the {username, profilePicture} snapshots that
// conversations and notifications denormalize. Snapshots are read through a
// TTL cache; the TTL is the tolerated staleness. A profile edit invalidates
// the cache and sweeps the new snapshot into every stored copy.
package profiles

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL bounds how stale a cached snapshot may be.
const DefaultTTL = 5 * time.Minute

// Source is the authoritative profile store.
type Source interface {
	GetUserByID(ctx context.Context, id string) (*data.User, error)
}

// Cache stores snapshots with an expiry.
type Cache interface {
	Get(ctx context.Context, id string) (data.ProfileSnapshot, bool, error)
	Set(ctx context.Context, id string, snap data.ProfileSnapshot, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Resolver looks up profile snapshots by user id.
type Resolver struct {
	users Source
	cache Cache
	ttl   time.Duration
	group singleflight.Group

	// gens counts invalidations per id; a fetch that began before the latest
	// invalidation must not write its result into the cache
	mu   sync.Mutex
	gens map[string]uint64
}

// NewResolver returns a Resolver. A nil cache disables caching.
func NewResolver(users Source, cache Cache, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{users: users, cache: cache, ttl: ttl, gens: make(map[string]uint64)}
}

func (r *Resolver) generation(id string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[id]
}

// Snapshot returns the profile snapshot of id. A missing user yields an
// error wrapping data.ErrNotFound. Cache failures fall back to the source.
func (r *Resolver) Snapshot(ctx context.Context, id string) (data.ProfileSnapshot, error) {
	if r.cache != nil {
		snap, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			log.Printf("profiles: cache get %s: %v", id, err)
		} else if ok {
			return snap, nil
		}
	}

	// the shared fetch must not die with whichever caller started it
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(id, func() (any, error) {
		gen := r.generation(id)
		u, err := r.users.GetUserByID(fetchCtx, id)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", id, err)
		}
		snap := u.Snapshot()
		if r.cache != nil && r.generation(id) == gen {
			if err := r.cache.Set(fetchCtx, id, snap, r.ttl); err != nil {
				log.Printf("profiles: cache set %s: %v", id, err)
			}
			// invalidated while setting: the Delete may have run before our Set
			if r.generation(id) != gen {
				if err := r.cache.Delete(fetchCtx, id); err != nil {
					log.Printf("profiles: cache delete %s: %v", id, err)
				}
			}
		}
		return snap, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return data.ProfileSnapshot{}, res.Err
		}
		return res.Val.(data.ProfileSnapshot), nil
	case <-ctx.Done():
		return data.ProfileSnapshot{}, ctx.Err()
	}
}

// Snapshots resolves several ids concurrently.
func (r *Resolver) Snapshots(ctx context.Context, ids ...string) (map[string]data.ProfileSnapshot, error) {
	snaps := make([]data.ProfileSnapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			snap, err := r.Snapshot(gctx, id)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]data.ProfileSnapshot, len(ids))
	for i, id := range ids {
		out[id] = snaps[i]
	}
	return out, nil
}

// Invalidate drops the cached snapshot of id. Lookups already in flight
// still return what they read but no longer cache it, and later lookups do
// not join them.
func (r *Resolver) Invalidate(ctx context.Context, id string) error {
	r.mu.Lock()
	r.gens[id]++
	r.mu.Unlock()
	r.group.Forget(id)

	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, id)
}
