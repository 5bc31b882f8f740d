package chat

import (
	"context"
	"sync"
)

// Locker serialises work on a single chat session. The returned unlock
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, sessionID int64) (unlock func(), err error)
}

// MemoryLocker is a per-session mutex for a single server process.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[int64]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int
}

// NewMemoryLocker returns an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[int64]*sessionLock)}
}

// Lock blocks until the session is free or ctx is done.
func (m *MemoryLocker) Lock(ctx context.Context, sessionID int64) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{sem: make(chan struct{}, 1)}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(sessionID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(sessionID, l)
		})
	}, nil
}

func (m *MemoryLocker) release(sessionID int64, l *sessionLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, sessionID)
	}
}

// held reports how many sessions currently have waiters or holders.
func (m *MemoryLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
