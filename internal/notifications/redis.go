package notifications

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisCooldown is a CooldownStore shared across daemon replicas, so only
// one instance alerts on the same change.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldown connects and pings the Redis instance.
func NewRedisCooldown(addr, password string, db int) (*RedisCooldown, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCooldown{client: client, prefix: "stakewatch:cooldown:"}, nil
}

func (r *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	counter, err := r.client.Incr(ctx, r.prefix+key).Result()
	if err != nil {
		return false, err
	}
	if counter == 1 {
		if err := r.client.Expire(ctx, r.prefix+key, ttl).Err(); err != nil {
			return false, err
		}
	}
	return counter == 1, nil
}

func (r *RedisCooldown) Close() error {
	return r.client.Close()
}
