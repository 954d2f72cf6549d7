package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

var errLockTimeout = errors.New("lock wait timeout")

// keyLocks is a set of exclusive locks addressed by key. Each lock is a
// one-slot channel so acquisition can race a context and a timer.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]chan struct{}
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]chan struct{})}
}

func (k *keyLocks) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	ch, ok := k.m[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.m[key] = ch
	}
	return ch
}

func (k *keyLocks) acquire(ctx context.Context, key string, timeout time.Duration) error {
	ch := k.slot(key)

	// fast path
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return domain.ErrStoreUnavailable(ctx.Err())
	case <-t.C:
		return domain.ErrStoreUnavailable(errLockTimeout)
	}
}

func (k *keyLocks) release(key string) {
	<-k.slot(key)
}
