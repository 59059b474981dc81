package shared

import (
	"sync"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// EnvironmentStore holds the single current EnvironmentalSample.
type EnvironmentStore struct {
	mu     sync.RWMutex
	sample domain.EnvironmentalSample
	set    bool
}

// Set replaces the current sample wholesale.
func (e *EnvironmentStore) Set(s domain.EnvironmentalSample) {
	e.mu.Lock()
	e.sample = s
	e.set = true
	e.mu.Unlock()
}

// Snapshot returns the current sample and whether one was ever recorded.
func (e *EnvironmentStore) Snapshot() (domain.EnvironmentalSample, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sample, e.set
}
