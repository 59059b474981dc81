package sensors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers/aht20"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// AHT20Ambient reads air temperature and humidity from an AHT20 on the shared
// bus. Fields the chip cannot measure come from Base when one is set.
type AHT20Ambient struct {
	Base ports.AmbientDriver

	mu         sync.Mutex
	addr       uint16
	configured bool
	now        func() time.Time
}

func NewAHT20Ambient(addr uint16, base ports.AmbientDriver) *AHT20Ambient {
	if addr == 0 {
		addr = aht20.Address
	}
	return &AHT20Ambient{Base: base, addr: addr, now: time.Now}
}

func (a *AHT20Ambient) Name() string  { return "aht20" }
func (a *AHT20Ambient) UsesBus() bool { return true }

// Read must be called with the bus lock held; bus is the locked handle.
func (a *AHT20Ambient) Read(ctx context.Context, bus ports.Bus) (domain.EnvironmentalSample, error) {
	var sample domain.EnvironmentalSample
	if a.Base != nil {
		s, err := a.Base.Read(ctx, bus)
		if err != nil {
			return sample, err
		}
		sample = s
	}
	if bus == nil {
		return sample, fmt.Errorf("aht20: no bus")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	dev := aht20.New(bus)
	dev.Address = a.addr
	if !a.configured {
		dev.Configure()
		a.configured = true
	}
	if err := dev.Read(); err != nil {
		return sample, fmt.Errorf("aht20 read: %w", err)
	}
	sample.AirTemperature = float64(dev.DeciCelsius()) / 10
	sample.Humidity = float64(dev.DeciRelHumidity()) / 10
	sample.Timestamp = a.now()
	return sample, nil
}

var (
	_ ports.AmbientDriver = (*AHT20Ambient)(nil)
	_ ports.BusUser       = (*AHT20Ambient)(nil)
)
