package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

var (
	ErrWouldBlock = errors.New("queue: would block")
	ErrTimeout    = errors.New("queue: send timed out")
)

// MemQueue is a bounded in-memory queue that preserves FIFO ordering.
// It is intended for exactly one producer and one consumer.
type MemQueue struct {
	ch chan domain.SensorEvent
}

func NewMemQueue(capacity int) (*MemQueue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("queue: invalid capacity %d", capacity)
	}
	return &MemQueue{ch: make(chan domain.SensorEvent, capacity)}, nil
}

// Send blocks until there is room or ctx is done.
func (q *MemQueue) Send(ctx context.Context, ev domain.SensorEvent) error {
	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendTimeout waits at most d for room.
func (q *MemQueue) SendTimeout(ev domain.SensorEvent, d time.Duration) error {
	if d <= 0 {
		return q.TrySend(ev)
	}
	select {
	case q.ch <- ev:
		return nil
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case q.ch <- ev:
		return nil
	case <-timer.C:
		return ErrTimeout
	}
}

func (q *MemQueue) TrySend(ev domain.SensorEvent) error {
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrWouldBlock
	}
}

func (q *MemQueue) TryReceive() (domain.SensorEvent, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return nil, false
	}
}

func (q *MemQueue) Receive(ctx context.Context) (domain.SensorEvent, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemQueue) Len() int { return len(q.ch) }

func (q *MemQueue) Cap() int { return cap(q.ch) }
