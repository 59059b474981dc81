package directory

import (
	"sync"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// DefaultCapacity is the number of peers the directory keeps.
const DefaultCapacity = 20

// Directory is a fixed-capacity table of peers keyed by node id.
// Existing ids are overwritten in place; new ids are rejected once full.
type Directory struct {
	mu    sync.RWMutex
	nodes []domain.Node
	cap   int
}

func New(capacity int) *Directory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Directory{
		nodes: make([]domain.Node, 0, capacity),
		cap:   capacity,
	}
}

// Upsert replaces the record for n.ID or appends it when there is room.
// It reports whether n is now resident.
func (d *Directory) Upsert(n domain.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.nodes {
		if d.nodes[i].ID == n.ID {
			d.nodes[i] = n
			return true
		}
	}
	if len(d.nodes) >= d.cap {
		return false
	}
	d.nodes = append(d.nodes, n)
	return true
}

func (d *Directory) Get(id domain.NodeID) (domain.Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Node{}, false
}

// Snapshot returns a copy of the resident records in insertion order.
func (d *Directory) Snapshot() []domain.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Node, len(d.nodes))
	copy(out, d.nodes)
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

func (d *Directory) Cap() int { return d.cap }
