package quota

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps a day's key around past midnight in every timezone.
const counterTTL = 48 * time.Hour

// RedisCounter keeps daily counts in Redis so several API instances share
// one quota.
type RedisCounter struct {
	Client *redis.Client
	Prefix string
}

// NewRedisCounter creates a counter with the default key prefix.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{Client: client, Prefix: "studypal:usage"}
}

func (c *RedisCounter) key(userID, day string) string {
	return c.Prefix + ":" + day + ":" + userID
}

// Increment bumps the counter and refreshes its expiry in one transaction.
func (c *RedisCounter) Increment(ctx context.Context, userID, day string) (int, error) {
	var incr *redis.IntCmd
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, c.key(userID, day))
		pipe.Expire(ctx, c.key(userID, day), counterTTL)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (c *RedisCounter) Count(ctx context.Context, userID, day string) (int, error) {
	n, err := c.Client.Get(ctx, c.key(userID, day)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}
