package wal

import (
	"os"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// ReadDir replays every record with id >= from across the segments in dir,
// oldest first, without opening anything for writing. A record still being
// written at the end of the newest segment is skipped, so it is safe to run
// against the directory of a live node.
func ReadDir(dir string, from ports.JournalEntryID, fn func(id ports.JournalEntryID, rec ports.JournalRecord) error) error {
	segs, err := listSegments(dir)
	if err != nil {
		return err
	}
	for i, seg := range segs {
		tail := i == len(segs)-1
		if err := iterateSegment(seg.path, from, tail, fn); err != nil {
			return err
		}
	}
	return nil
}

// StatDir reports segment count and on-disk size for the journal in dir.
// LatestAppended is left zero; it needs a full scan.
func StatDir(dir string) (ports.JournalStats, error) {
	segs, err := listSegments(dir)
	if err != nil {
		return ports.JournalStats{}, err
	}
	st := ports.JournalStats{Segments: len(segs)}
	for _, seg := range segs {
		fi, err := os.Stat(seg.path)
		if err != nil {
			return ports.JournalStats{}, err
		}
		st.SizeBytes += fi.Size()
	}
	return st, nil
}
