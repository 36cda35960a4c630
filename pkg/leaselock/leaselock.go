package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// ErrBusy is returned when the lock is held by someone else and waiting
	// is disabled.
	ErrBusy = errors.New("graph lock busy")
	// ErrLost means a held lease could not be renewed before its TTL ran
	// out; the lease context is canceled with this cause.
	ErrLost = errors.New("graph lock lost")
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client hands out TTL leases on graph ids, backed by the graph_locks
// table. A lease fences the curator's fetch-modify-persist cycle: two
// curation attempts against the same graph id serialize instead of silently
// overwriting each other's full-document writes.
type Client struct {
	db dbConn

	ttl        time.Duration
	renewEvery time.Duration
	waitPoll   time.Duration
}

// Options tunes lease behavior. Zero values pick defaults sized for splice
// work: a 2 minute TTL renewed at half-life, polling every 250ms while
// waiting for a busy lock.
type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration
	WaitPoll   time.Duration
}

func New(pool *pgxpool.Pool, opts Options) *Client {
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Minute
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/2, time.Second)
	}
	if opts.WaitPoll <= 0 {
		opts.WaitPoll = 250 * time.Millisecond
	}
	return &Client{
		db:         pool,
		ttl:        opts.TTL,
		renewEvery: opts.RenewEvery,
		waitPoll:   opts.WaitPoll,
	}
}

// WithLock runs fn while holding the lease on key, waiting for the lock if
// it is busy. The context passed to fn is canceled (cause ErrLost) if the
// lease cannot be renewed, so a slow splice cannot outlive its fence.
func (c *Client) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lease, err := c.acquire(ctx, key, true)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.release(context.Background())
	}()
	return fn(lease.ctx)
}

// TryWithLock is WithLock without waiting: it returns ErrBusy immediately
// when the lock is held.
func (c *Client) TryWithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	lease, err := c.acquire(ctx, key, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.release(context.Background())
	}()
	return fn(lease.ctx)
}

type lease struct {
	key   string
	token string

	ctx    context.Context
	cancel context.CancelCauseFunc
	client *Client

	stopOnce sync.Once
	stopCh   chan struct{}
}

func (c *Client) acquire(ctx context.Context, key string, wait bool) (*lease, error) {
	if key == "" {
		return nil, errors.New("graph lock key is empty")
	}

	token, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	ttlMs := c.ttl.Milliseconds()

	for {
		var returnedKey string
		err := c.db.QueryRow(ctx, tryAcquireSQL, key, token, ttlMs).Scan(&returnedKey)
		if err == nil && returnedKey != "" {
			break
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if !wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, c.waitPoll, c.waitPoll/2); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &lease{
		key:    key,
		token:  token,
		ctx:    leaseCtx,
		cancel: cancel,
		client: c,
		stopCh: make(chan struct{}),
	}
	go l.renewLoop(ttlMs)
	return l, nil
}

func (l *lease) release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})
	_, err := l.client.db.Exec(ctx, releaseSQL, l.key, l.token)
	return err
}

func (l *lease) renewLoop(ttlMs int64) {
	t := time.NewTicker(l.client.renewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.ctx.Done():
			return
		case <-t.C:
			if err := l.renewOnce(ttlMs); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *lease) renewOnce(ttlMs int64) error {
	for attempt := range 3 {
		renewCtx, cancel := context.WithTimeout(l.ctx, 15*time.Second)
		var returnedKey string
		err := l.client.db.QueryRow(renewCtx, renewSQL, l.key, l.token, ttlMs).Scan(&returnedKey)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLost
		}
		if attempt == 2 {
			return err
		}
		if err := sleepWithJitter(l.ctx, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

const tryAcquireSQL = `
INSERT INTO graph_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE graph_locks.expires_at < now()
   OR graph_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE graph_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM graph_locks
WHERE lock_key = $1 AND locked_by = $2;
`
