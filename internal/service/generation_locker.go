package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

const lockReleaseTimeout = 5 * time.Second

// LockStore is a distributed advisory lock keyed by owner token.
type LockStore interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) (bool, error)
}

// GenerationLocker serialises generation and optimization per key. Without a store the
// lock only spans this process.
type GenerationLocker struct {
	store  LockStore
	ttl    time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	held map[string]struct{}
}

// NewGenerationLocker constructs a GenerationLocker. store may be nil.
func NewGenerationLocker(store LockStore, ttl time.Duration, logger *zap.Logger) *GenerationLocker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationLocker{store: store, ttl: ttl, logger: logger, held: make(map[string]struct{})}
}

// Lock takes the lock for key and returns its release func. A held lock yields
// ErrGenerationInProgress.
func (l *GenerationLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.store == nil {
		return l.lockLocal(key)
	}

	token := uuid.NewString()
	ok, err := l.store.Acquire(ctx, key, token, l.ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrGenerationInProgress, "a generation is already running for "+key)
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
		defer cancel()
		released, err := l.store.Release(releaseCtx, key, token)
		if err != nil {
			l.logger.Warn("failed to release generation lock", zap.String("key", key), zap.Error(err))
			return
		}
		if !released {
			l.logger.Warn("generation lock expired before release", zap.String("key", key))
		}
	}, nil
}

func (l *GenerationLocker) lockLocal(key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, appErrors.Clone(appErrors.ErrGenerationInProgress, "a generation is already running for "+key)
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
