package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// TimescaleSink stores mesh messages in a TimescaleDB hypertable.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates the message table and turns it into a hypertable.
func (t *TimescaleSink) EnsureSchema(ctx context.Context) error {
	create := "CREATE TABLE IF NOT EXISTS " + t.tableName + ` (
	ts TIMESTAMPTZ NOT NULL,
	direction TEXT NOT NULL,
	peer_id BIGINT NOT NULL,
	packet_id BIGINT NOT NULL,
	kind TEXT NOT NULL,
	rssi INTEGER,
	snr DOUBLE PRECISION,
	fields JSONB,
	UNIQUE (peer_id, packet_id, ts)
)`
	if _, err := t.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := t.db.ExecContext(ctx, "SELECT create_hypertable($1, 'ts', if_not_exists => TRUE)", t.tableName); err != nil {
		return fmt.Errorf("create hypertable: %w", err)
	}
	return nil
}

func (t *TimescaleSink) Accept(ctx context.Context, msg domain.Message) error {
	return t.WriteBatch(ctx, []domain.Message{msg})
}

func (t *TimescaleSink) WriteBatch(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	// INSERT ... ON CONFLICT DO NOTHING keeps relayed duplicates out.
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (ts, direction, peer_id, packet_id, kind, rssi, snr, fields) VALUES ")

	args := make([]any, 0, len(msgs)*8)
	for i, m := range msgs {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+8))
		fields, err := json.Marshal(m.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}

		args = append(args,
			m.At,
			string(m.Direction),
			int64(m.Peer),
			int64(m.Packet.ID),
			m.Kind,
			m.Packet.RSSI,
			m.Packet.SNR,
			fields,
		)
	}

	b.WriteString(" ON CONFLICT (peer_id, packet_id, ts) DO NOTHING")

	_, err := t.db.ExecContext(ctx, b.String(), args...)
	return err
}

var _ ports.TelemetrySink = (*TimescaleSink)(nil)
