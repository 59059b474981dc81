package ports

import (
	"context"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// SensorDriver is the acquisition side of one event modality.
// Available reports whether a new reading can be fetched without waiting.
// An invalid reading is returned as a value with Valid() == false, not as an error.
type SensorDriver interface {
	Name() string
	Modality() domain.Modality
	Available() bool
	Fetch(ctx context.Context, bus Bus) (domain.SensorEvent, error)
}

// AmbientDriver produces the current environmental sample.
type AmbientDriver interface {
	Name() string
	Read(ctx context.Context, bus Bus) (domain.EnvironmentalSample, error)
}

// BusUser is implemented by drivers that talk over the shared bus.
// Drivers that do not implement it are assumed not to need the bus.
type BusUser interface {
	UsesBus() bool
}

// ReadinessNotifier is implemented by drivers that can signal new data
// instead of being polled on a schedule.
type ReadinessNotifier interface {
	Ready() <-chan struct{}
}

// UsesBus reports whether d must be called with the bus mutex held.
func UsesBus(d any) bool {
	if u, ok := d.(BusUser); ok {
		return u.UsesBus()
	}
	return false
}
