//go:build linux

package i2c

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ioctl request that selects the target address on an i2c-dev handle.
const i2cSlave = 0x0703

// LinuxBus drives an adapter exposed through /dev/i2c-N.
type LinuxBus struct {
	mu   sync.Mutex
	f    *os.File
	addr uint16
	set  bool
}

func OpenLinuxBus(path string) (*LinuxBus, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &LinuxBus{f: f}, nil
}

// Tx writes w then reads len(r) bytes from addr. The write and read are
// separate transactions, which the supported sensors tolerate.
func (b *LinuxBus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrClosed
	}
	if !b.set || b.addr != addr {
		if err := unix.IoctlSetInt(int(b.f.Fd()), i2cSlave, int(addr)); err != nil {
			return fmt.Errorf("select 0x%02x: %w", addr, err)
		}
		b.addr, b.set = addr, true
	}
	if len(w) > 0 {
		if _, err := b.f.Write(w); err != nil {
			return fmt.Errorf("write 0x%02x: %w", addr, err)
		}
	}
	if len(r) > 0 {
		if _, err := b.f.Read(r); err != nil {
			return fmt.Errorf("read 0x%02x: %w", addr, err)
		}
	}
	return nil
}

func (b *LinuxBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}
