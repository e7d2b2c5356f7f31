package cache

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSeatLockHeld indicates another registration currently holds a lock for
// one of the requested date options.
var ErrSeatLockHeld = errors.New("seat lock held by another registration")

const seatLockPrefix = "seatlock:"

// SeatLocker serialises capacity check plus insert for a set of date options
// using short-lived Redis locks. A nil client degrades to no locking, leaving
// the plain check-then-act behaviour.
type SeatLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSeatLocker constructs a seat locker.
func NewSeatLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SeatLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatLocker{client: client, ttl: ttl, logger: logger}
}

// Acquire takes locks for every date option id, in sorted order so concurrent
// registrations for overlapping options cannot deadlock. The returned release
// function is safe to call exactly once; locks also expire on their own after
// the TTL. Returns ErrSeatLockHeld when a lock is contended after retries.
func (l *SeatLocker) Acquire(ctx context.Context, dateOptionIDs []string) (func(), error) {
	if l.client == nil {
		l.logger.Warn("seat locking disabled, capacity gate races are possible")
		return func() {}, nil
	}

	ids := append([]string(nil), dateOptionIDs...)
	sort.Strings(ids)

	acquired := make([]string, 0, len(ids))
	release := func() {
		for _, id := range acquired {
			if err := l.client.Del(context.Background(), seatLockPrefix+id).Err(); err != nil {
				l.logger.Sugar().Warnw("failed to release seat lock", "date_option_id", id, "error", err)
			}
		}
	}

	for _, id := range ids {
		ok, err := l.acquireOne(ctx, seatLockPrefix+id)
		if err != nil {
			release()
			// Redis being down must not block bookings; fall back to the
			// unlocked path.
			l.logger.Sugar().Warnw("seat lock backend unavailable, proceeding unlocked", "error", err)
			return func() {}, nil
		}
		if !ok {
			release()
			return nil, ErrSeatLockHeld
		}
		acquired = append(acquired, id)
	}

	return release, nil
}

func (l *SeatLocker) acquireOne(ctx context.Context, key string) (bool, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return false, nil
}
