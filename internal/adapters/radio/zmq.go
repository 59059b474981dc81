package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pebbe/zmq4"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

type ZMQConfig struct {
	Bind  string   `yaml:"bind"`
	Peers []string `yaml:"peers"`
	// Reported for every received frame; the medium carries no real link metadata.
	RSSI int     `yaml:"rssi"`
	SNR  float64 `yaml:"snr"`
}

// ZMQRadio emulates a shared LoRa channel on a host network: frames are
// published on Bind and read from every endpoint in Peers.
type ZMQRadio struct {
	mu        sync.Mutex
	pub       *zmq4.Socket
	sub       *zmq4.Socket
	link      domain.LinkQuality
	listening bool
	closed    bool
}

func NewZMQRadio(cfg ZMQConfig) (*ZMQRadio, error) {
	pub, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	if err := pub.SetLinger(0); err != nil {
		pub.Close()
		return nil, err
	}
	if err := pub.Bind(cfg.Bind); err != nil {
		pub.Close()
		return nil, fmt.Errorf("failed to bind publisher: %w", err)
	}

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	_ = sub.SetLinger(0)
	if err := sub.SetSubscribe(""); err != nil {
		pub.Close()
		sub.Close()
		return nil, err
	}
	for _, peer := range cfg.Peers {
		if err := sub.Connect(peer); err != nil {
			pub.Close()
			sub.Close()
			return nil, fmt.Errorf("failed to connect to %s: %w", peer, err)
		}
	}

	return &ZMQRadio{
		pub:  pub,
		sub:  sub,
		link: domain.LinkQuality{RSSI: cfg.RSSI, SNR: cfg.SNR},
	}, nil
}

func (z *ZMQRadio) Transmit(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frame) > mesh.MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", mesh.ErrFrameTooLarge, len(frame))
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return ErrClosed
	}
	z.listening = false
	if _, err := z.pub.SendBytes(frame, zmq4.DONTWAIT); err != nil {
		return fmt.Errorf("%w: %v", ErrTransmit, err)
	}
	return nil
}

func (z *ZMQRadio) ReceiveAvailable() ([]byte, domain.LinkQuality, bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil, domain.LinkQuality{}, false
	}
	frame, err := z.sub.RecvBytes(zmq4.DONTWAIT)
	if err != nil {
		return nil, domain.LinkQuality{}, false
	}
	return frame, z.link, true
}

func (z *ZMQRadio) StartReceive() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return ErrClosed
	}
	z.listening = true
	return nil
}

func (z *ZMQRadio) Listening() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.listening
}

func (z *ZMQRadio) Close() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.closed {
		return nil
	}
	z.closed = true
	return errors.Join(z.sub.Close(), z.pub.Close())
}

var _ ports.Radio = (*ZMQRadio)(nil)
