package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studio-booking/internal/config"
)

// DateLocker serializes booking check-then-write per date. NoopLocker is the
// default; the other backends are opt-in.
type DateLocker interface {
	// Lock blocks until the date is held or ctx ends. The returned func
	// releases it and must be called exactly once.
	Lock(ctx context.Context, date string) (func(), error)
}

// NoopLocker leaves the race window between re-check and write open.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// MemoryLocker serializes bookings inside one process only.
type MemoryLocker struct {
	mu    sync.Mutex
	dates map[string]*dateLock
}

type dateLock struct {
	held chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{dates: make(map[string]*dateLock)}
}

func (m *MemoryLocker) Lock(ctx context.Context, date string) (func(), error) {
	m.mu.Lock()
	l, ok := m.dates[date]
	if !ok {
		l = &dateLock{held: make(chan struct{}, 1)}
		m.dates[date] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.held <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-l.held
				m.release(date, l)
			})
		}, nil
	case <-ctx.Done():
		m.release(date, l)
		return nil, ctx.Err()
	}
}

func (m *MemoryLocker) release(date string, l *dateLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.dates, date)
	}
}

// PostgresLocker holds a transaction-scoped advisory lock keyed by date. No
// table is read or written; the database is only a serialization point
// shared by every replica.
type PostgresLocker struct {
	Pool *pgxpool.Pool
}

func (p *PostgresLocker) Lock(ctx context.Context, date string) (func(), error) {
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin advisory lock tx: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey(date)); err != nil {
		_ = tx.Rollback(context.Background())
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tx.Rollback(ctx)
	}, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired holder never releases someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance SET NX lock with a TTL so a crashed
// holder cannot block a date forever.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Poll   time.Duration
}

func (r *RedisLocker) Lock(ctx context.Context, date string) (func(), error) {
	key := lockKey(date)
	token := uuid.NewString()
	poll := r.Poll
	if poll <= 0 {
		poll = 50 * time.Millisecond
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		ok, err := r.Client.SetNX(ctx, key, token, r.TTL).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire redis lock: %w", err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = releaseScript.Run(ctx, r.Client, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func lockKey(date string) string {
	return "studio-booking:date:" + date
}

// NewDateLocker builds the locker selected by cfg. The returned close func
// releases backend connections.
func NewDateLocker(ctx context.Context, cfg config.Lock) (DateLocker, func(), error) {
	switch cfg.Backend {
	case "", config.LockNone:
		return NoopLocker{}, func() {}, nil
	case config.LockMemory:
		return NewMemoryLocker(), func() {}, nil
	case config.LockPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &PostgresLocker{Pool: pool}, pool.Close, nil
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return &RedisLocker{Client: client, TTL: cfg.TTL}, func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
}
