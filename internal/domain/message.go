package domain

import "time"

type Direction string

const (
	Inbound  Direction = "rx"
	Outbound Direction = "tx"
)

// Message is a packet plus its parsed payload, as handed to telemetry sinks.
// Peer is the source for inbound messages and the destination for outbound ones.
type Message struct {
	Direction Direction      `json:"direction"`
	Peer      NodeID         `json:"peer"`
	Kind      string         `json:"kind"`
	Packet    MeshPacket     `json:"packet"`
	Fields    map[string]any `json:"fields"`
	At        time.Time      `json:"at"`
}
