package locking

import (
	"context"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
)

type Redsync struct {
	rs *redsync.Redsync
}

func NewRedsync(rs *redsync.Redsync) *Redsync {
	return &Redsync{rs}
}

func (l *Redsync) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(10*time.Second), redsync.WithTries(20))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		// nolint:errcheck
		mutex.UnlockContext(context.Background())
	}, nil
}

// Local serializes holders of the same key inside one process.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{locks: map[string]*entry{}}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, e, true) })
	}, nil
}

func (l *Local) release(key string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
