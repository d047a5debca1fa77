package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
)

// Local is a fixed-window limiter for single-process deployments without redis.
type Local struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func NewLocal() *Local {
	return &Local{now: time.Now, windows: map[string]*window{}}
}

func (l *Local) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	if limit.IsZero() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= limit.Period {
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count >= limit.Rate {
		return ErrRateLimited
	}
	w.count++
	return nil
}
