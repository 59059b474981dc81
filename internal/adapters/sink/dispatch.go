package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

var (
	ErrDispatcherClosed = errors.New("sink: dispatcher closed")
	ErrDrainTimeout     = errors.New("sink: drain timed out")
)

const (
	DefaultDispatchBuffer  = 64
	DefaultDeliveryTimeout = 2 * time.Second
)

// Dispatcher decouples a sink from the node loops. Accept never blocks: the
// message is queued for a dedicated worker, or dropped and counted when the
// queue is full. Each delivery is bounded by the delivery timeout.
type Dispatcher struct {
	sink    ports.TelemetrySink
	obs     ports.Observability
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Message

	base    context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewDispatcher starts the worker for s. Non-positive buffer and timeout
// select the defaults.
func NewDispatcher(s ports.TelemetrySink, buffer int, timeout time.Duration, obs ports.Observability) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultDispatchBuffer
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:    s,
		obs:     obs,
		timeout: timeout,
		queue:   make(chan domain.Message, buffer),
		base:    base,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) Name() string { return d.sink.Name() }

func (d *Dispatcher) Accept(_ context.Context, msg domain.Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- msg:
	default:
		d.dropped.Add(1)
		d.obs.IncCounter(ports.MetricSinkDropped, 1)
	}
	return nil
}

func (d *Dispatcher) work() {
	defer close(d.done)
	for msg := range d.queue {
		ctx, cancel := context.WithTimeout(d.base, d.timeout)
		err := d.sink.Accept(ctx, msg)
		cancel()
		if err != nil {
			d.failed.Add(1)
			d.obs.IncCounter(ports.MetricSinkErrors, 1)
			d.obs.LogError("sink_accept_failed", err, ports.Field{Key: "sink", Value: d.sink.Name()})
		}
	}
}

// Dropped reports messages rejected by a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Failed reports deliveries the sink returned an error for.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }

func (d *Dispatcher) Pending() int { return len(d.queue) }

// Close stops accepting, lets the worker drain for at most one delivery
// timeout, then closes the wrapped sink. A sink still stuck after that is
// abandoned and left open.
func (d *Dispatcher) Close() error {
	var err error
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		timer := time.NewTimer(d.timeout)
		defer timer.Stop()
		select {
		case <-d.done:
		case <-timer.C:
			d.cancel()
			err = fmt.Errorf("%s: %w", d.sink.Name(), ErrDrainTimeout)
			return
		}
		d.cancel()

		if c, ok := d.sink.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

var _ ports.TelemetrySink = (*Dispatcher)(nil)
