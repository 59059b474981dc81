package ports

// Bus is a shared two-wire bus. The method set matches tinygo.org/x/drivers.I2C
// so device drivers from that module can run on any implementation.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}
