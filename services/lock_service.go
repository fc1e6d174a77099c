package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrLockTimeout is returned when a named lock cannot be taken within the
// acquisition budget. Callers surface it as a transient failure.
var ErrLockTimeout = errors.New("lock acquisition timed out")

const (
	// LockWaitBudget bounds how long a caller queues for a state lock.
	LockWaitBudget = 10 * time.Second
	// LockHoldBudget bounds how long a holder may keep the lock before it
	// is force-released.
	LockHoldBudget = 30 * time.Second
)

// Lock is a held mutual-exclusion lock. Release is idempotent.
type Lock interface {
	Release()
}

// LockProvider hands out named locks keyed by quote/version id.
type LockProvider interface {
	Acquire(key string, wait time.Duration) (Lock, error)
}

// ---------- In-process keyed mutex ----------

// KeyedMutex serializes callers per key inside one process. Suitable for
// single-node deployments and tests.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]chan struct{})}
}

func (m *KeyedMutex) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[key] = ch
	}
	return ch
}

func (m *KeyedMutex) Acquire(key string, wait time.Duration) (Lock, error) {
	ch := m.slot(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
	case <-timer.C:
		return nil, ErrLockTimeout
	}

	l := &keyedLock{ch: ch}
	l.expiry = time.AfterFunc(LockHoldBudget, func() {
		log.Printf("[lock] hold budget exceeded for %s, force releasing", key)
		l.Release()
	})
	return l, nil
}

type keyedLock struct {
	ch     chan struct{}
	once   sync.Once
	expiry *time.Timer
}

func (l *keyedLock) Release() {
	l.once.Do(func() {
		if l.expiry != nil {
			l.expiry.Stop()
		}
		<-l.ch
	})
}

// ---------- Postgres advisory lock ----------

// PgAdvisoryLocker takes session-level advisory locks so mutual exclusion
// holds across backend instances sharing one database. Each held lock pins
// a dedicated connection; dropping the connection drops the lock, which
// also enforces the hold budget.
type PgAdvisoryLocker struct {
	db *sql.DB
}

func NewPgAdvisoryLocker(db *sql.DB) *PgAdvisoryLocker {
	return &PgAdvisoryLocker{db: db}
}

func (p *PgAdvisoryLocker) Acquire(key string, wait time.Duration) (Lock, error) {
	deadline := time.Now().Add(wait)

	conn, err := p.db.Conn(context.Background())
	if err != nil {
		return nil, err
	}

	for {
		var locked bool
		err := conn.QueryRowContext(context.Background(),
			`SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&locked)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if locked {
			break
		}
		if time.Now().After(deadline) {
			conn.Close()
			return nil, ErrLockTimeout
		}
		time.Sleep(100 * time.Millisecond)
	}

	l := &pgLock{conn: conn, key: key}
	l.expiry = time.AfterFunc(LockHoldBudget, func() {
		log.Printf("[lock] hold budget exceeded for %s, force releasing", key)
		l.Release()
	})
	return l, nil
}

type pgLock struct {
	conn   *sql.Conn
	key    string
	once   sync.Once
	expiry *time.Timer
}

func (l *pgLock) Release() {
	l.once.Do(func() {
		if l.expiry != nil {
			l.expiry.Stop()
		}
		if _, err := l.conn.ExecContext(context.Background(),
			`SELECT pg_advisory_unlock(hashtext($1))`, l.key); err != nil {
			log.Printf("[lock] failed to unlock %s: %v", l.key, err)
		}
		l.conn.Close()
	})
}
