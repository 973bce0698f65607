package readings

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	latestReadingKey    = "latest_monitor_reading_dt"
	latestReadingGenKey = "latest_monitor_reading_dt:gen"
)

// LatestCache keeps the newest reading timestamp in Redis. Concurrent misses
// share one load. Every Clear bumps a generation counter, and a load only
// writes back when the generation is unchanged since the miss.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewLatestCache builds the cache. A nil client disables caching.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	return &LatestCache{client: client, ttl: ttl}
}

// Get returns the cached timestamp or populates it with load. A nil result is
// never cached so the first reading becomes visible immediately.
func (c *LatestCache) Get(ctx context.Context, load func(context.Context) (*time.Time, error)) (*time.Time, error) {
	if c == nil || c.client == nil {
		return load(ctx)
	}
	raw, err := c.client.Get(ctx, latestReadingKey).Result()
	if err == nil {
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			return &t, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	// Waiters share the load, so it outlives the first caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(latestReadingKey, func() (any, error) {
		gen, err := c.generation(shared, c.client)
		if err != nil {
			return nil, err
		}
		latest, err := load(shared)
		if err != nil || latest == nil {
			return latest, err
		}
		if err := c.store(shared, gen, *latest); err != nil {
			return nil, err
		}
		return latest, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*time.Time), nil
}

// store writes latest unless a Clear ran after gen was read.
func (c *LatestCache) store(ctx context.Context, gen int64, latest time.Time) error {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, latestReadingKey, latest.Format(time.RFC3339Nano), c.ttl)
			return nil
		})
		return err
	}, latestReadingGenKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *LatestCache) generation(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	gen, err := cmd.Get(ctx, latestReadingGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Clear drops the cached timestamp and invalidates loads still in flight.
func (c *LatestCache) Clear(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, latestReadingGenKey)
		pipe.Del(ctx, latestReadingKey)
		return nil
	})
	return err
}
