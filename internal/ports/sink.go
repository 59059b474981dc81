package ports

import (
	"context"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// TelemetrySink receives decoded inbound and composed outbound messages.
// Delivery is fire-and-forget: callers log a returned error and move on.
type TelemetrySink interface {
	Accept(ctx context.Context, msg domain.Message) error
	Name() string
}
