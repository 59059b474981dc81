package pipeline

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// randomPacketID returns a fresh 32-bit packet identifier.
func randomPacketID() uint32 {
	var b [4]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.Uint32()
	}
	return binary.BigEndian.Uint32(b[:])
}
