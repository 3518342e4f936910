// Package worker runs the alert scan on a fixed interval when Temporal is not
// used. Replicas coordinate through a Redis lock so only one scans per tick.
package worker

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stanstork/taller-api/internal/alertas"
)

const DefaultLockKey = "lock:alert-scan"

// ErrLockHeld is returned by a Locker when another holder owns the key.
var ErrLockHeld = errors.New("lock held by another worker")

// Locker hands out an exclusive lease on key for at most ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RedisLocker implements Locker on top of redislock.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, errors.Wrapf(err, "obtain %s", key)
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}

type Config struct {
	Interval time.Duration
	LockTTL  time.Duration
	LockKey  string
}

type Worker struct {
	scanner alertas.Scanner
	locker  Locker
	cfg     Config
	logger  zerolog.Logger
}

// NewWorker builds a ticker scheduler. A nil locker runs every tick unguarded,
// which is only safe with a single replica.
func NewWorker(scanner alertas.Scanner, locker Locker, cfg Config, logger zerolog.Logger) (*Worker, error) {
	if scanner == nil {
		return nil, errors.New("scanner is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	if cfg.LockKey == "" {
		cfg.LockKey = DefaultLockKey
	}
	return &Worker{
		scanner: scanner,
		locker:  locker,
		cfg:     cfg,
		logger:  logger.With().Str("component", "alert_worker").Logger(),
	}, nil
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.cfg.Interval).Msg("alert worker started")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("alert worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Tick(ctx); err != nil {
				w.logger.Error().Err(err).Msg("alert scan tick failed")
			}
		}
	}
}

// Tick runs one scan unless another replica holds the lock, in which case it
// returns false and no error.
func (w *Worker) Tick(ctx context.Context) (bool, error) {
	if w.locker != nil {
		release, err := w.locker.Acquire(ctx, w.cfg.LockKey, w.cfg.LockTTL)
		if errors.Is(err, ErrLockHeld) {
			w.logger.Debug().Str("key", w.cfg.LockKey).Msg("alert scan already running elsewhere; skipping tick")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn().Err(err).Str("key", w.cfg.LockKey).Msg("failed to release alert scan lock")
			}
		}()
	}

	if _, err := w.scanner.Run(ctx); err != nil {
		return true, err
	}
	return true, nil
}
