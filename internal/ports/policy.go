package ports

import (
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

type Policy struct {
	// Fixed capacity per event modality. A missing or non-positive entry is a startup error.
	QueueCapacity map[domain.Modality]int

	SendTimeout    time.Duration // bounded wait for a sensor queue send
	BusTimeout     time.Duration // bounded wait for the bus mutex
	StorageTimeout time.Duration // bounded wait for the storage mutex
	IdleSleep      time.Duration

	// Adds a second per-modality queue drained by the journal writer.
	JournalEnabled bool
}
