package ports

import (
	"context"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// Radio is a half-duplex frame transceiver.
// Transmit leaves the radio in standby; callers re-arm with StartReceive.
// StartReceive is idempotent.
type Radio interface {
	Transmit(ctx context.Context, frame []byte) error
	ReceiveAvailable() ([]byte, domain.LinkQuality, bool)
	StartReceive() error
}
