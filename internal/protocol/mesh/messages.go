package mesh

import (
	"fmt"
	"math"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// NodeInfoPayload is the self-announcement message.
type NodeInfoPayload struct {
	ID        domain.NodeID
	Name      string
	ShortName string
	Latitude  float64
	Longitude float64
	UptimeMS  int64
}

func NewNodeInfo(self domain.Identity, uptime time.Duration) NodeInfoPayload {
	return NodeInfoPayload{
		ID:        self.ID,
		Name:      self.Name,
		ShortName: self.ShortName,
		Latitude:  self.Latitude,
		Longitude: self.Longitude,
		UptimeMS:  uptime.Milliseconds(),
	}
}

func (n NodeInfoPayload) Render(format Format) string {
	return render(format, TypeNodeInfo, []field{
		{"id", n.ID},
		{"name", n.Name},
		{"short", n.ShortName},
		{"lat", n.Latitude},
		{"lon", n.Longitude},
		{"time", n.UptimeMS},
	})
}

// announceUptimeBound caps the uptime field width assumed by CheckNodeInfoFits.
const announceUptimeBound = 100 * 365 * 24 * time.Hour

// CheckNodeInfoFits returns ErrFrameTooLarge when an announcement for self
// could exceed one frame, assuming the widest packet id and uptime. A zero
// ID stands for any 24-bit id.
func CheckNodeInfoFits(self domain.Identity, hopLimit uint8, format Format) error {
	if self.ID == 0 {
		self.ID = 0xFFFFFF
	}
	_, err := EncodePacket(domain.MeshPacket{
		From:     self.ID,
		To:       domain.BroadcastID,
		HopLimit: hopLimit,
		ID:       math.MaxUint32,
		Payload:  NewNodeInfo(self, announceUptimeBound).Render(format),
	})
	return err
}

// NodeInfo extracts a nodeinfo message. Absent fields are zero so that a
// directory update replaces every field of the previous record.
func (p Payload) NodeInfo() (NodeInfoPayload, error) {
	if p.Type != TypeNodeInfo {
		return NodeInfoPayload{}, fmt.Errorf("mesh: payload type %q is not %s", p.Type, TypeNodeInfo)
	}
	n := NodeInfoPayload{
		Name:      p.Text("name"),
		ShortName: p.Text("short"),
	}
	n.ID, _ = p.NodeID("id")
	n.Latitude, _ = p.Float("lat")
	n.Longitude, _ = p.Float("lon")
	n.UptimeMS, _ = p.Int("time")
	return n, nil
}

// TelemetryPayload is the periodic environmental broadcast.
type TelemetryPayload struct {
	ID       domain.NodeID
	Sample   domain.EnvironmentalSample
	UptimeMS int64
}

func (t TelemetryPayload) Render(format Format) string {
	s := t.Sample
	return render(format, TypeTelemetry, []field{
		{"id", t.ID},
		{"water_temp", round2(s.WaterTemperature)},
		{"air_temp", round2(s.AirTemperature)},
		{"humidity", round2(s.Humidity)},
		{"pressure", round2(s.Pressure)},
		{"wind_speed", round2(s.WindSpeed)},
		{"wind_dir", round2(s.WindDirection)},
		{"wave_height", round2(s.WaveHeight)},
		{"water_quality", s.WaterQuality},
		{"battery", s.Battery},
		{"time", t.UptimeMS},
	})
}

func (p Payload) Telemetry() (TelemetryPayload, error) {
	if p.Type != TypeTelemetry {
		return TelemetryPayload{}, fmt.Errorf("mesh: payload type %q is not %s", p.Type, TypeTelemetry)
	}
	var t TelemetryPayload
	t.ID, _ = p.NodeID("id")
	t.Sample.WaterTemperature, _ = p.Float("water_temp")
	t.Sample.AirTemperature, _ = p.Float("air_temp")
	t.Sample.Humidity, _ = p.Float("humidity")
	t.Sample.Pressure, _ = p.Float("pressure")
	t.Sample.WindSpeed, _ = p.Float("wind_speed")
	t.Sample.WindDirection, _ = p.Float("wind_dir")
	t.Sample.WaveHeight, _ = p.Float("wave_height")
	wq, _ := p.Int("water_quality")
	t.Sample.WaterQuality = int(wq)
	batt, _ := p.Int("battery")
	t.Sample.Battery = int(batt)
	t.UptimeMS, _ = p.Int("time")
	return t, nil
}

// EventPayload forwards one sensor event. The discriminator is the modality name.
type EventPayload struct {
	ID       domain.NodeID
	Event    domain.SensorEvent
	UptimeMS int64
}

func (e EventPayload) Render(format Format) (string, error) {
	base := []field{{"id", e.ID}, {"valid", e.Event.Valid()}}
	switch ev := e.Event.(type) {
	case domain.PositionFix:
		return render(format, TypePosition, append(base,
			field{"lat", ev.Latitude},
			field{"lon", ev.Longitude},
			field{"alt", round2(ev.Altitude)},
			field{"speed", round2(ev.Speed)},
			field{"sats", ev.Satellites},
			field{"hdop", ev.HDOP},
			field{"time", e.UptimeMS},
		)), nil
	case domain.AcousticDetection:
		return render(format, TypeAcoustic, append(base,
			field{"event_id", ev.EventID},
			field{"confidence", round2(ev.Confidence)},
			field{"time", e.UptimeMS},
		)), nil
	case domain.VisualDetection:
		return render(format, TypeVisual, append(base,
			field{"object_id", ev.ObjectID},
			field{"confidence", round2(ev.Confidence)},
			field{"time", e.UptimeMS},
		)), nil
	default:
		return "", fmt.Errorf("mesh: unsupported event %T", e.Event)
	}
}
