package domain

import (
	"strconv"
	"time"
)

// NodeID is a 32-bit mesh participant identifier.
type NodeID uint32

// BroadcastID is the reserved destination meaning "all reachable peers".
const BroadcastID NodeID = 0xFFFFFFFF

// Hex renders the id the way it appears on the wire (lowercase, unpadded).
func (id NodeID) Hex() string { return strconv.FormatUint(uint64(id), 16) }

func (id NodeID) String() string { return "!" + id.Hex() }

// PayloadType selects the semantics of a packet payload.
type PayloadType uint8

const (
	PayloadUnknown PayloadType = iota
	PayloadNodeInfo
	PayloadTelemetry
	PayloadEvent
)

func (t PayloadType) String() string {
	switch t {
	case PayloadNodeInfo:
		return "nodeinfo"
	case PayloadTelemetry:
		return "telemetry"
	case PayloadEvent:
		return "event"
	default:
		return "unknown"
	}
}

// MeshPacket is one framed message exchanged over the radio.
// HopLimit and HopStart are carried for relays but not enforced here.
type MeshPacket struct {
	From        NodeID
	To          NodeID
	HopLimit    uint8
	HopStart    uint8
	ID          uint32
	PayloadType PayloadType
	Payload     string

	// Populated by the transport on receive.
	RxTime time.Time
	RSSI   int
	SNR    float64
}

// LinkQuality is the metadata a radio reports alongside a received frame.
type LinkQuality struct {
	RSSI int
	SNR  float64
}
