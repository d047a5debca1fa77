package limiter

import (
	"context"

	"github.com/go-redis/redis_rate/v10"
	toolkit "github.com/hiendaovinh/toolkit/pkg/limiter"
	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is the error every limiter here returns when a key is over budget.
var ErrRateLimited = toolkit.ErrRateLimited

func IsRateLimited(err error) bool {
	return err != nil && err.Error() == ErrRateLimited.Error()
}

// Redis is a GCRA limiter shared by every api instance.
type Redis struct {
	limiter *redis_rate.Limiter
}

func NewRedis(client redis.UniversalClient) (*Redis, error) {
	return &Redis{limiter: redis_rate.NewLimiter(client)}, nil
}

func (l *Redis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.limiter.Allow(ctx, key, limit)
	if err != nil {
		return err
	}
	if res.Allowed == 0 {
		return ErrRateLimited
	}
	return nil
}

// Unlimited admits every call.
type Unlimited struct{}

func (Unlimited) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	return nil
}
