package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexAcquireAndRelease(t *testing.T) {
	m := NewKeyedMutex()

	lock, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)

	// second acquire on the same key times out while held
	_, err = m.Acquire("update-quote:1", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)

	lock.Release()

	lock2, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)
	lock2.Release()
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := NewKeyedMutex()

	l1, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)
	defer l1.Release()

	l2, err := m.Acquire("update-quote:2", 10*time.Millisecond)
	require.NoError(t, err)
	l2.Release()
}

func TestKeyedMutexReleaseIsIdempotent(t *testing.T) {
	m := NewKeyedMutex()

	lock, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)

	lock.Release()
	lock.Release()

	// a double release must not free the slot twice
	l2, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)
	_, err = m.Acquire("update-quote:1", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
	l2.Release()
}

func TestKeyedMutexWaitersGetTheLockInTurn(t *testing.T) {
	m := NewKeyedMutex()

	lock, err := m.Acquire("update-quote:1", 10*time.Millisecond)
	require.NoError(t, err)

	var wg sync.WaitGroup
	acquired := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		l, err := m.Acquire("update-quote:1", time.Second)
		assert.NoError(t, err)
		close(acquired)
		l.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("waiter acquired the lock while it was held")
	case <-time.After(30 * time.Millisecond):
	}

	lock.Release()
	wg.Wait()
}
