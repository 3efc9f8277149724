package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const datesKey = "classtrack:attendance:dates"

// Redis wraps the redis client: health probe plus a small cache for the
// distinct-attendance-dates query. All methods tolerate a nil receiver so
// the API degrades to uncached reads when redis is absent.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// CachedDates returns the cached distinct-dates list, reporting a miss on
// any error.
func (r *Redis) CachedDates(ctx context.Context) ([]string, bool) {
	if r == nil || r.Client == nil {
		return nil, false
	}
	raw, err := r.Client.Get(ctx, datesKey).Bytes()
	if err != nil {
		return nil, false
	}
	var dates []string
	if err := json.Unmarshal(raw, &dates); err != nil {
		return nil, false
	}
	return dates, true
}

// StoreDates caches the distinct-dates list.
func (r *Redis) StoreDates(ctx context.Context, dates []string, ttl time.Duration) {
	if r == nil || r.Client == nil {
		return
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return
	}
	_ = r.Client.Set(ctx, datesKey, raw, ttl).Err()
}

// InvalidateDates drops the cached list; every schedule write calls this.
func (r *Redis) InvalidateDates(ctx context.Context) {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Del(ctx, datesKey).Err()
}
