package shoreline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

func inbound() Message {
	return Message{
		Direction: domain.Inbound,
		Peer:      0x1234,
		Kind:      "telemetry",
		Fields:    map[string]any{"water_temp": 11.2},
		At:        time.Unix(1, 0),
	}
}

func TestNewCallbackSink(t *testing.T) {
	var received []Message
	sink := NewCallbackSink("cb", func(m Message) error {
		received = append(received, m)
		return nil
	})

	input := inbound()
	if err := sink.Accept(context.Background(), input); err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(received))
	}
	got := received[0]
	if got.Peer != input.Peer || got.Kind != input.Kind {
		t.Fatalf("mismatched message: %+v vs %+v", got, input)
	}
	if got.Fields["water_temp"] != 11.2 {
		t.Fatalf("expected fields to be passed through, got %v", got.Fields)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %q", sink.Name())
	}
	if err := sink.Accept(context.Background(), inbound()); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := inbound()
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.Accept(context.Background(), input)
	}()

	var msg Message
	select {
	case msg = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel message")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("Accept returned error: %v", err)
	}
	if msg.Peer != input.Peer {
		t.Fatalf("unexpected message: %+v", msg)
	}

	closeFn()
	if err := sink.Accept(context.Background(), input); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkHonoursContext(t *testing.T) {
	sink, _, closeFn := NewChannelSink("full", 0)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sink.Accept(ctx, inbound()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
