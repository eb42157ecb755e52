package database

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/ksred/schemactl/internal/utils"
)

// RunLock guards the migration ledger against concurrent runs. Acquire is
// non-blocking: a second invocation fails immediately rather than queueing
// behind a run whose outcome would invalidate its plan.
type RunLock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// AdvisoryLock implements RunLock on a PostgreSQL session advisory lock.
// The lock is tied to the session, so it disappears with the connection
// even if the process is killed mid-run.
type AdvisoryLock struct {
	db  *gorm.DB
	key int64
}

// NewAdvisoryLock creates an advisory lock with the given key
func NewAdvisoryLock(db *gorm.DB, key int64) *AdvisoryLock {
	return &AdvisoryLock{
		db:  db,
		key: key,
	}
}

// Acquire attempts to take the advisory lock without blocking
func (l *AdvisoryLock) Acquire(ctx context.Context) error {
	var acquired bool
	err := l.db.WithContext(ctx).
		Raw("SELECT pg_try_advisory_lock(?)", l.key).
		Scan(&acquired).Error
	if err != nil {
		return err
	}
	if !acquired {
		return &utils.LockError{}
	}
	return nil
}

// Release releases the advisory lock
func (l *AdvisoryLock) Release(ctx context.Context) error {
	return l.db.WithContext(ctx).
		Exec("SELECT pg_advisory_unlock(?)", l.key).Error
}

// LocalLock implements RunLock in process memory, for backends without
// advisory locks (the SQLite test driver) and single-binary deployments.
type LocalLock struct {
	mu   sync.Mutex
	held bool
}

// NewLocalLock creates an in-process run lock
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// Acquire attempts to take the lock without blocking
func (l *LocalLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return &utils.LockError{}
	}
	l.held = true
	return nil
}

// Release releases the lock
func (l *LocalLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held = false
	return nil
}
