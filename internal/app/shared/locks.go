package shared

import (
	"errors"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

var (
	ErrBusTimeout     = errors.New("shared: bus mutex acquisition timed out")
	ErrStorageTimeout = errors.New("shared: storage mutex acquisition timed out")
)

// semaphore is a mutex whose acquisition can time out.
type semaphore chan struct{}

func (s semaphore) acquire(timeout time.Duration) bool {
	select {
	case s <- struct{}{}:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

func (s semaphore) release() { <-s }

// BusLock guards the shared communication bus. The bus handle is only
// reachable inside With, so it cannot be used without holding the lock.
type BusLock struct {
	sem semaphore
	bus ports.Bus
}

func NewBusLock(bus ports.Bus) *BusLock {
	return &BusLock{sem: make(semaphore, 1), bus: bus}
}

// With runs fn while holding the bus and releases it on every exit path.
func (b *BusLock) With(timeout time.Duration, fn func(bus ports.Bus) error) error {
	if !b.sem.acquire(timeout) {
		return ErrBusTimeout
	}
	defer b.sem.release()
	return fn(b.bus)
}

// Held reports whether some task currently holds the bus.
func (b *BusLock) Held() bool { return len(b.sem) == 1 }

// StorageLock guards durable storage. Writers take it around each write and
// release it between writes so other tasks can get occasional access.
type StorageLock struct {
	sem semaphore
}

func NewStorageLock() *StorageLock {
	return &StorageLock{sem: make(semaphore, 1)}
}

func (s *StorageLock) With(timeout time.Duration, fn func() error) error {
	if !s.sem.acquire(timeout) {
		return ErrStorageTimeout
	}
	defer s.sem.release()
	return fn()
}
