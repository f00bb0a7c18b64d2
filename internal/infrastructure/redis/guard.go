package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "joyeria:checkout:session:"

// Guard claims payment sessions with SET NX so a concurrent retry of the same
// checkout is turned away before it reaches the database.
type Guard struct {
	rdb *goredis.Client
}

func NewGuard(rdb *goredis.Client) *Guard {
	return &Guard{rdb: rdb}
}

func (g *Guard) Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Claim returns false when another attempt already holds the session.
func (g *Guard) Claim(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, g.Key(sessionID), time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: claim %s: %w", sessionID, err)
	}
	return ok, nil
}

func (g *Guard) Release(ctx context.Context, sessionID string) error {
	if err := g.rdb.Del(ctx, g.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis: release %s: %w", sessionID, err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (g *Guard) Ping(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}
