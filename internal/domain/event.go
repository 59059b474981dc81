package domain

import "time"

// Modality identifies the acquisition source that produced a reading.
type Modality uint8

const (
	ModalityPosition Modality = iota + 1
	ModalityAcoustic
	ModalityVisual
	ModalityAmbient
)

// EventModalities lists the modalities that publish SensorEvents through a queue.
// Ambient readings overwrite the current EnvironmentalSample instead.
var EventModalities = []Modality{ModalityPosition, ModalityAcoustic, ModalityVisual}

func (m Modality) String() string {
	switch m {
	case ModalityPosition:
		return "position"
	case ModalityAcoustic:
		return "acoustic"
	case ModalityVisual:
		return "visual"
	case ModalityAmbient:
		return "ambient"
	default:
		return "unknown"
	}
}

// ParseModality is the inverse of Modality.String.
func ParseModality(s string) (Modality, bool) {
	for _, m := range []Modality{ModalityPosition, ModalityAcoustic, ModalityVisual, ModalityAmbient} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// SensorEvent is the closed set of readings a sensor task can publish.
// Implementations are plain values; once created they are never mutated.
type SensorEvent interface {
	Modality() Modality
	Valid() bool
	CapturedAt() time.Time
	sensorEvent()
}

// PositionFix is a satellite-navigation fix.
type PositionFix struct {
	IsValid    bool      `json:"valid"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Altitude   float64   `json:"alt"`
	Speed      float64   `json:"speed"`
	Satellites uint32    `json:"sats"`
	HDOP       uint32    `json:"hdop"`
	Timestamp  time.Time `json:"ts"`
}

func (PositionFix) Modality() Modality      { return ModalityPosition }
func (p PositionFix) Valid() bool           { return p.IsValid }
func (p PositionFix) CapturedAt() time.Time { return p.Timestamp }
func (PositionFix) sensorEvent()            {}

// AcousticDetection is a classified sound event.
type AcousticDetection struct {
	IsValid    bool      `json:"valid"`
	EventID    int       `json:"event_id"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"ts"`
}

func (AcousticDetection) Modality() Modality      { return ModalityAcoustic }
func (a AcousticDetection) Valid() bool           { return a.IsValid }
func (a AcousticDetection) CapturedAt() time.Time { return a.Timestamp }
func (AcousticDetection) sensorEvent()            {}

// VisualDetection is an object detected by the camera model.
type VisualDetection struct {
	IsValid    bool      `json:"valid"`
	ObjectID   int       `json:"object_id"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"ts"`
}

func (VisualDetection) Modality() Modality      { return ModalityVisual }
func (v VisualDetection) Valid() bool           { return v.IsValid }
func (v VisualDetection) CapturedAt() time.Time { return v.Timestamp }
func (VisualDetection) sensorEvent()            {}
