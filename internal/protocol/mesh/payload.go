package mesh

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
)

// Payload is the parsed structured text carried after the frame header.
// JSON numbers decode as float64; key=value pairs decode as strings.
type Payload struct {
	Type   string
	Format Format
	Fields map[string]any
}

// ParsePayload accepts a JSON object or the compact key=value;key=value form.
// A payload without a type field parses successfully with an empty Type.
func ParsePayload(text string) (Payload, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Payload{}, fmt.Errorf("%w: empty", ErrPayloadSyntax)
	}

	var (
		pl  Payload
		err error
	)
	if trimmed[0] == '{' {
		pl, err = parseJSON(trimmed)
	} else {
		pl, err = parseKV(trimmed)
	}
	if err != nil {
		return Payload{}, err
	}
	if t, ok := pl.Fields["type"].(string); ok {
		pl.Type = t
	}
	return pl, nil
}

func parseJSON(text string) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	fields := map[string]any{}
	if err := dec.Decode(&fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrPayloadSyntax, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrPayloadSyntax)
	}
	return Payload{Format: FormatJSON, Fields: fields}, nil
}

func parseKV(text string) (Payload, error) {
	fields := map[string]any{}
	for _, part := range strings.Split(text, ";") {
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return Payload{}, fmt.Errorf("%w: bad pair %q", ErrPayloadSyntax, part)
		}
		fields[k] = strings.TrimSpace(v)
	}
	return Payload{Format: FormatKV, Fields: fields}, nil
}

func (p Payload) Has(key string) bool {
	_, ok := p.Fields[key]
	return ok
}

func (p Payload) Text(key string) string {
	switch v := p.Fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) Float(key string) (float64, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (p Payload) Int(key string) (int64, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		return int64(v), true
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(v, 64)
		return int64(f), err == nil
	default:
		return 0, false
	}
}

// NodeID reads a node identifier: numeric in JSON, hexadecimal in key=value text.
func (p Payload) NodeID(key string) (domain.NodeID, bool) {
	switch v := p.Fields[key].(type) {
	case float64:
		if v < 0 || v > math.MaxUint32 {
			return 0, false
		}
		return domain.NodeID(v), true
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(v), "!"), "0x")
		id, err := strconv.ParseUint(s, 16, 32)
		return domain.NodeID(id), err == nil
	default:
		return 0, false
	}
}

// Normalized returns the fields with the type discriminator removed, suitable for sinks.
func (p Payload) Normalized() map[string]any {
	out := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		if k == "type" {
			continue
		}
		if p.Format == FormatKV {
			if s, ok := v.(string); ok {
				if f, err := strconv.ParseFloat(s, 64); err == nil && k != "id" {
					out[k] = f
					continue
				}
			}
		}
		out[k] = v
	}
	if id, ok := p.NodeID("id"); ok {
		out["id"] = uint32(id)
	}
	return out
}

type field struct {
	key string
	val any
}

// render writes fields in order, prefixed with the discriminator.
func render(format Format, typ string, fields []field) string {
	var b strings.Builder
	if format == FormatKV {
		b.WriteString("type=")
		b.WriteString(kvSafe(typ))
		for _, f := range fields {
			b.WriteByte(';')
			b.WriteString(f.key)
			b.WriteByte('=')
			b.WriteString(kvValue(f.val))
		}
		return b.String()
	}

	b.WriteString(`{"type":`)
	b.Write(mustJSON(typ))
	for _, f := range fields {
		b.WriteByte(',')
		b.Write(mustJSON(f.key))
		b.WriteByte(':')
		b.Write(mustJSON(f.val))
	}
	b.WriteByte('}')
	return b.String()
}

func kvValue(v any) string {
	switch x := v.(type) {
	case domain.NodeID:
		return x.Hex()
	case string:
		return kvSafe(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return kvSafe(fmt.Sprint(x))
	}
}

func kvSafe(s string) string {
	return strings.NewReplacer(";", "_", "=", "_").Replace(s)
}

func mustJSON(v any) []byte {
	if id, ok := v.(domain.NodeID); ok {
		v = uint32(id)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}

// round2 keeps telemetry inside a single frame.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
