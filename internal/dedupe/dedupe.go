// Package dedupe drops redelivered inbound webhooks. Twilio retries a webhook
// when it does not get a timely response, and every retry carries the same
// MessageSid; a Claimer lets only the first delivery through.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tbourn/powerpulse-backend/internal/repo"
)

// ErrSeen is returned by Claim when the key was already claimed within its TTL.
var ErrSeen = errors.New("inbound message already processed")

// Claimer records inbound message keys.
type Claimer interface {
	// Claim returns nil for the first call with key and ErrSeen for
	// subsequent calls until ttl elapses.
	Claim(ctx context.Context, key, sender string, ttl time.Duration) error
	// Release forgets key so a later delivery is accepted again. It is used
	// when an accepted message could not be queued.
	Release(ctx context.Context, key string) error
}

// ----------------------------------------------------------------------------
// GORM

// DB stores claims in the inbound_messages table.
type DB struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDB returns a Claimer backed by db.
func NewDB(db *gorm.DB) *DB {
	return &DB{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Claim implements Claimer.
func (d *DB) Claim(ctx context.Context, key, sender string, ttl time.Duration) error {
	err := repo.ClaimInbound(ctx, d.db, key, sender, ttl, d.now())
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrSeen
	}
	return err
}

// Release implements Claimer.
func (d *DB) Release(ctx context.Context, key string) error {
	return repo.ReleaseInbound(ctx, d.db, key)
}

// Purge removes expired claims.
func (d *DB) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredInbound(ctx, d.db, d.now())
}

// ----------------------------------------------------------------------------
// Redis

// Redis stores claims as keys with a TTL. Expiry is handled by Redis.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis connects to url (redis://...) and pings the server.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{rdb: rdb, prefix: "powerpulse:inbound:"}, nil
}

// Claim implements Claimer with SET NX.
func (r *Redis) Claim(ctx context.Context, key, sender string, ttl time.Duration) error {
	ok, err := r.rdb.SetNX(ctx, r.prefix+key, sender, ttl).Result()
	if err != nil {
		return fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return ErrSeen
	}
	return nil
}

// Release implements Claimer.
func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
