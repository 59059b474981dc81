package radio

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/protocol/mesh"
)

// Medium is an in-process broadcast channel shared by Loopback radios.
// A frame reaches every other attached radio that is currently listening.
type Medium struct {
	mu     sync.Mutex
	radios []*Loopback
}

func NewMedium() *Medium { return &Medium{} }

// Attach creates a radio on the medium that reports link as the quality of
// every frame it receives.
func (m *Medium) Attach(link domain.LinkQuality) *Loopback {
	r := &Loopback{medium: m, link: link}
	m.mu.Lock()
	m.radios = append(m.radios, r)
	m.mu.Unlock()
	return r
}

func (m *Medium) broadcast(from *Loopback, frame []byte) {
	m.mu.Lock()
	peers := make([]*Loopback, 0, len(m.radios))
	for _, r := range m.radios {
		if r != from {
			peers = append(peers, r)
		}
	}
	m.mu.Unlock()

	for _, r := range peers {
		r.deliver(frame)
	}
}

// Loopback is a half-duplex radio. A transmit leaves it in standby, and
// frames that arrive while it is not listening are lost.
type Loopback struct {
	medium *Medium
	link   domain.LinkQuality

	mu        sync.Mutex
	rx        ringBuffer
	txLog     [][]byte
	listening bool
	closed    bool
	lost      int
	failNext  int
}

func (l *Loopback) Transmit(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(frame) > mesh.MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", mesh.ErrFrameTooLarge, len(frame))
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.listening = false
	if l.failNext > 0 {
		l.failNext--
		l.mu.Unlock()
		return ErrTransmit
	}
	cp := append([]byte(nil), frame...)
	l.txLog = append(l.txLog, cp)
	l.mu.Unlock()

	if l.medium != nil {
		l.medium.broadcast(l, cp)
	}
	return nil
}

func (l *Loopback) deliver(frame []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.listening || l.closed {
		l.lost++
		return
	}
	if l.rx.push(received{frame: append([]byte(nil), frame...), link: l.link}) {
		l.lost++
	}
}

func (l *Loopback) ReceiveAvailable() ([]byte, domain.LinkQuality, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rx.pop()
	if !ok {
		return nil, domain.LinkQuality{}, false
	}
	return r.frame, r.link, true
}

func (l *Loopback) StartReceive() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.listening = true
	return nil
}

// Inject places a frame in the receive buffer as if it had arrived over the air.
func (l *Loopback) Inject(frame []byte, link domain.LinkQuality) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rx.push(received{frame: append([]byte(nil), frame...), link: link})
}

// FailNext makes the next n transmits fail.
func (l *Loopback) FailNext(n int) {
	l.mu.Lock()
	l.failNext = n
	l.mu.Unlock()
}

func (l *Loopback) TxLog() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.txLog))
	for i, f := range l.txLog {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

func (l *Loopback) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Lost counts frames dropped because the radio was not listening or its buffer overflowed.
func (l *Loopback) Lost() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

func (l *Loopback) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rx.len()
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.listening = false
	l.mu.Unlock()
	return nil
}

var _ ports.Radio = (*Loopback)(nil)
