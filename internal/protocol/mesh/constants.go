package mesh

const (
	// MaxFrameSize is the single-frame limit of the LoRa link layer. Frames are never fragmented.
	MaxFrameSize = 255

	// DefaultHopLimit is the relay budget stamped on every outgoing packet.
	DefaultHopLimit = 3

	headerFields = 4
	separator    = ':'
)

// Payload discriminators.
const (
	TypeNodeInfo  = "nodeinfo"
	TypeTelemetry = "telemetry"
	TypePosition  = "position"
	TypeAcoustic  = "acoustic"
	TypeVisual    = "visual"
)

// Format selects the structured-text encoding of outgoing payloads.
type Format string

const (
	FormatJSON Format = "json"
	FormatKV   Format = "kv"
)
