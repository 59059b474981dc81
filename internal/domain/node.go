package domain

import "time"

// Node is a peer record held by the node directory.
type Node struct {
	ID        NodeID    `json:"id"`
	Name      string    `json:"name"`
	ShortName string    `json:"short_name"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	LastSeen  time.Time `json:"last_seen"`
	RSSI      int       `json:"rssi"`
	SNR       float64   `json:"snr"`
}

// Reported position when none is configured (Stockholm archipelago).
const (
	DefaultLatitude  = 59.3293
	DefaultLongitude = 18.0686
)

// Identity is the static description this node announces about itself.
type Identity struct {
	ID        NodeID  `json:"id"`
	Name      string  `json:"name"`
	ShortName string  `json:"short_name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
