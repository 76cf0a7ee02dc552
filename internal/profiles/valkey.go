package profiles

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"

	"github.com/valkey-io/valkey-go"
)

const valkeyPrefix = "profile:"

// ValkeyCache shares snapshots between server instances.
type ValkeyCache struct {
	client valkey.Client
}

// NewValkeyCache wraps an existing client.
func NewValkeyCache(client valkey.Client) *ValkeyCache {
	return &ValkeyCache{client: client}
}

// DialValkey connects to a single Valkey node.
func DialValkey(addr string) (valkey.Client, error) {
	return valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
}

func (c *ValkeyCache) Get(ctx context.Context, id string) (data.ProfileSnapshot, bool, error) {
	var snap data.ProfileSnapshot
	raw, err := c.client.Do(ctx, c.client.B().Get().Key(valkeyPrefix+id).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, err
	}
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return snap, false, err
	}
	return snap, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, id string, snap data.ProfileSnapshot, ttl time.Duration) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	cmd := c.client.B().Set().Key(valkeyPrefix + id).Value(string(b)).ExSeconds(secs).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) Delete(ctx context.Context, id string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(valkeyPrefix+id).Build()).Error()
}
