package ports

import (
	"encoding/json"
	"time"
)

type JournalEntryID uint64

// JournalRecord is one durable log line written by the journal writer.
type JournalRecord struct {
	UUID       string          `json:"uuid"`
	Modality   string          `json:"modality"`
	NodeID     uint32          `json:"node_id"`
	CapturedAt time.Time       `json:"captured_at"`
	LoggedAt   time.Time       `json:"logged_at"`
	Event      json.RawMessage `json:"event"`
}

// Journal is an append-only log with a single writer.
type Journal interface {
	Append(rec JournalRecord) (JournalEntryID, error)
	Iterate(from JournalEntryID, fn func(id JournalEntryID, rec JournalRecord) error) error
	Stats() JournalStats
	Close() error
}

type JournalStats struct {
	LatestAppended JournalEntryID
	SizeBytes      int64
	Segments       int
}
