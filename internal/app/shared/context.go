package shared

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/queue"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// ErrInit marks a startup failure after which the node cannot run.
var ErrInit = errors.New("shared: initialization failed")

// Lane holds the queues fed by one modality's producer, one per consumer.
// Journal is nil when journaling is disabled.
type Lane struct {
	Modality domain.Modality
	Uplink   *queue.MemQueue
	Journal  *queue.MemQueue
}

// Context owns every cross-task synchronization primitive. It is built once
// at startup and handed to each task when it is spawned.
type Context struct {
	Bus         *BusLock
	Storage     *StorageLock
	Environment *EnvironmentStore

	// Transceiver serializes transmit and receive on the half-duplex radio.
	Transceiver sync.Mutex

	lanes []*Lane
}

func New(pol ports.Policy, bus ports.Bus) (*Context, error) {
	c := &Context{
		Bus:         NewBusLock(bus),
		Storage:     NewStorageLock(),
		Environment: &EnvironmentStore{},
	}

	for _, m := range domain.EventModalities {
		capacity := pol.QueueCapacity[m]
		up, err := queue.NewMemQueue(capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %s uplink queue: %v", ErrInit, m, err)
		}
		lane := &Lane{Modality: m, Uplink: up}
		if pol.JournalEnabled {
			j, err := queue.NewMemQueue(capacity)
			if err != nil {
				return nil, fmt.Errorf("%w: %s journal queue: %v", ErrInit, m, err)
			}
			lane.Journal = j
		}
		c.lanes = append(c.lanes, lane)
	}

	return c, nil
}

// Lane returns the lane for m, or nil for modalities without a queue.
func (c *Context) Lane(m domain.Modality) *Lane {
	for _, l := range c.lanes {
		if l.Modality == m {
			return l
		}
	}
	return nil
}

// Lanes returns the lanes in a fixed modality order.
func (c *Context) Lanes() []*Lane {
	out := make([]*Lane, len(c.lanes))
	copy(out, c.lanes)
	return out
}
