package sink

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// Multi delivers every message to each sink in order. One failing sink does
// not prevent delivery to the rest.
type Multi struct {
	sinks []ports.TelemetrySink
}

func NewMulti(sinks ...ports.TelemetrySink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Add(s ports.TelemetrySink) { m.sinks = append(m.sinks, s) }

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Accept(ctx context.Context, msg domain.Message) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Accept(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every member sink that holds resources.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each message as an info log line.
type LogSink struct {
	obs ports.Observability
}

func NewLogSink(obs ports.Observability) *LogSink { return &LogSink{obs: obs} }

func (l *LogSink) Name() string { return "log" }

func (l *LogSink) Accept(_ context.Context, msg domain.Message) error {
	l.obs.LogInfo("mesh_"+string(msg.Direction),
		ports.Field{Key: "peer", Value: msg.Peer.String()},
		ports.Field{Key: "kind", Value: msg.Kind},
		ports.Field{Key: "id", Value: fmt.Sprintf("%x", msg.Packet.ID)},
		ports.Field{Key: "rssi", Value: msg.Packet.RSSI},
		ports.Field{Key: "fields", Value: msg.Fields})
	return nil
}

var (
	_ ports.TelemetrySink = (*Multi)(nil)
	_ ports.TelemetrySink = (*LogSink)(nil)
)
