package mesh

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// Frame is the colon-delimited header plus the raw payload text.
// Only From is required to parse; To, HopLimit and ID are filled best effort.
type Frame struct {
	From     domain.NodeID
	To       domain.NodeID
	HopLimit uint8
	ID       uint32
	Payload  string
}

// Encode renders hex(from):hex(to):dec(hopLimit):hex(id):payload.
// Hex digits are lowercase without padding.
func Encode(from, to domain.NodeID, hopLimit uint8, id uint32, payload string) string {
	var b strings.Builder
	b.Grow(32 + len(payload))
	b.WriteString(strconv.FormatUint(uint64(from), 16))
	b.WriteByte(separator)
	b.WriteString(strconv.FormatUint(uint64(to), 16))
	b.WriteByte(separator)
	b.WriteString(strconv.FormatUint(uint64(hopLimit), 10))
	b.WriteByte(separator)
	b.WriteString(strconv.FormatUint(uint64(id), 16))
	b.WriteByte(separator)
	b.WriteString(payload)
	return b.String()
}

// EncodePacket frames p and enforces the link-layer size limit.
func EncodePacket(p domain.MeshPacket) ([]byte, error) {
	s := Encode(p.From, p.To, p.HopLimit, p.ID, p.Payload)
	if len(s) > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFrameTooLarge, len(s), MaxFrameSize)
	}
	return []byte(s), nil
}

// DecodeFrame splits on the first four separators. Everything after the
// fourth separator is the payload, verbatim, colons included.
func DecodeFrame(raw []byte) (Frame, error) {
	var (
		fields [headerFields][]byte
		rest   = raw
	)
	for i := 0; i < headerFields; i++ {
		idx := bytes.IndexByte(rest, separator)
		if idx < 0 {
			return Frame{}, fmt.Errorf("%w: %d of %d separators", ErrMalformedFrame, i, headerFields)
		}
		fields[i] = rest[:idx]
		rest = rest[idx+1:]
	}

	from, err := strconv.ParseUint(string(fields[0]), 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: from %q", ErrMalformedFrame, fields[0])
	}

	f := Frame{From: domain.NodeID(from), Payload: string(rest)}
	if v, err := strconv.ParseUint(string(fields[1]), 16, 32); err == nil {
		f.To = domain.NodeID(v)
	}
	if v, err := strconv.ParseUint(string(fields[2]), 10, 8); err == nil {
		f.HopLimit = uint8(v)
	}
	if v, err := strconv.ParseUint(string(fields[3]), 16, 32); err == nil {
		f.ID = uint32(v)
	}
	return f, nil
}

// Decode parses a received frame into a packet and its payload.
// A payload with an unrecognized discriminator decodes with PayloadUnknown.
func Decode(raw []byte) (domain.MeshPacket, Payload, error) {
	f, err := DecodeFrame(raw)
	if err != nil {
		return domain.MeshPacket{}, Payload{}, err
	}
	pl, err := ParsePayload(f.Payload)
	if err != nil {
		return domain.MeshPacket{}, Payload{}, err
	}
	if pl.Type == "" {
		return domain.MeshPacket{}, Payload{}, ErrMissingType
	}

	return domain.MeshPacket{
		From:        f.From,
		To:          f.To,
		HopLimit:    f.HopLimit,
		HopStart:    f.HopLimit,
		ID:          f.ID,
		PayloadType: PayloadTypeOf(pl.Type),
		Payload:     f.Payload,
	}, pl, nil
}

// PayloadTypeOf maps a discriminator to its packet payload type.
func PayloadTypeOf(discriminator string) domain.PayloadType {
	switch discriminator {
	case TypeNodeInfo:
		return domain.PayloadNodeInfo
	case TypeTelemetry:
		return domain.PayloadTelemetry
	case TypePosition, TypeAcoustic, TypeVisual:
		return domain.PayloadEvent
	default:
		return domain.PayloadUnknown
	}
}
