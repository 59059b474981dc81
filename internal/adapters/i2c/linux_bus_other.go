//go:build !linux

package i2c

type LinuxBus struct{}

func OpenLinuxBus(string) (*LinuxBus, error) { return nil, ErrUnsupported }

func (*LinuxBus) Tx(uint16, []byte, []byte) error { return ErrUnsupported }

func (*LinuxBus) Close() error { return nil }
