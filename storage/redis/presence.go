package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Config for the presence mirror connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Presence mirrors who is online into Redis, one key per identity with a TTL.
// The value is the gateway id that owns the connection. Purely best effort:
// the in-process registry stays authoritative and nothing here feeds back
// into registry decisions.
type Presence struct {
	rdb       *redis.Client
	gatewayID string
	ttl       time.Duration
}

func New(cfg Config, gatewayID string, ttl time.Duration) (*Presence, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Presence{rdb: rdb, gatewayID: gatewayID, ttl: ttl}, nil
}

// presence key: chat:presence:<identity>
func key(identity string) string { return "chat:presence:" + identity }

// Online marks the identity online and renews the TTL.
func (p *Presence) Online(ctx context.Context, identity string) error {
	return p.rdb.Set(ctx, key(identity), p.gatewayID, p.ttl).Err()
}

// Offline removes the identity's presence key.
func (p *Presence) Offline(ctx context.Context, identity string) error {
	return p.rdb.Del(ctx, key(identity)).Err()
}

// Lookup reports whether the identity is online and on which gateway.
func (p *Presence) Lookup(ctx context.Context, identity string) (gatewayID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, key(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (p *Presence) Close() error { return p.rdb.Close() }
