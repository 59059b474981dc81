package wal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

const (
	recordHeaderLen = 12
	segmentPrefix   = "journal-"
	segmentSuffix   = ".log"
)

type segment struct {
	seq  int
	path string
	size int64
}

// FileJournal is an append-only record log split into size-bounded segments.
// Only the newest segment is written; the oldest are removed past maxSegments.
type FileJournal struct {
	mu          sync.Mutex
	dir         string
	maxSegBytes int64
	maxSegments int
	segments    []segment
	file        *os.File
	writer      *bufio.Writer
	nextID      ports.JournalEntryID
	sizeBytes   int64
}

// NewFileJournal opens or creates a journal in dir. A non-positive
// maxSegmentBytes disables rotation; a non-positive maxSegments keeps all segments.
func NewFileJournal(dir string, maxSegmentBytes int64, maxSegments int) (*FileJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	j := &FileJournal{
		dir:         dir,
		maxSegBytes: maxSegmentBytes,
		maxSegments: maxSegments,
	}
	if err := j.bootstrap(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) bootstrap() error {
	segs, err := listSegments(j.dir)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		segs = []segment{{seq: 1, path: j.segmentPath(1)}}
	}
	j.segments = segs

	for i := range j.segments {
		last := i == len(j.segments)-1
		if err := j.scanSegment(&j.segments[i], last); err != nil {
			return err
		}
		j.sizeBytes += j.segments[i].size
	}
	return j.openActive()
}

func listSegments(dir string) ([]segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var segs []segment
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, segmentPrefix), segmentSuffix))
		if err != nil {
			continue
		}
		segs = append(segs, segment{seq: seq, path: filepath.Join(dir, name)})
	}
	sort.Slice(segs, func(a, b int) bool { return segs[a].seq < segs[b].seq })
	return segs, nil
}

func (j *FileJournal) segmentPath(seq int) string {
	return filepath.Join(j.dir, fmt.Sprintf("%s%06d%s", segmentPrefix, seq, segmentSuffix))
}

// scanSegment finds the last complete record. A partial trailing record is
// truncated when the segment is the active one.
func (j *FileJournal) scanSegment(seg *segment, active bool) error {
	rf, err := os.Open(seg.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		length := binary.BigEndian.Uint32(hdr[8:12])

		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("journal scan body: %w", err)
		}
		offset += recordHeaderLen + int64(length)
		if id > j.nextID {
			j.nextID = id
		}
	}

	if active {
		if err := os.Truncate(seg.path, offset); err != nil {
			return err
		}
	}
	seg.size = offset
	return nil
}

func (j *FileJournal) openActive() error {
	seg := j.segments[len(j.segments)-1]
	f, err := os.OpenFile(seg.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.writer = bufio.NewWriterSize(f, 64<<10)
	return nil
}

func (j *FileJournal) Append(rec ports.JournalRecord) (ports.JournalEntryID, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	b, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	if err := j.rotateIfNeededLocked(int64(len(b) + recordHeaderLen)); err != nil {
		return 0, fmt.Errorf("journal rotate: %w", err)
	}

	id := j.nextID + 1

	// entry format: [8 bytes id][4 bytes len][len bytes json]
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], uint64(id))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(b)))

	if _, err := j.writer.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := j.writer.Write(b); err != nil {
		return 0, err
	}
	if err := j.writer.Flush(); err != nil {
		return 0, err
	}

	n := int64(len(b) + len(hdr))
	j.nextID = id
	j.segments[len(j.segments)-1].size += n
	j.sizeBytes += n
	return id, nil
}

func (j *FileJournal) rotateIfNeededLocked(incoming int64) error {
	active := j.segments[len(j.segments)-1]
	if j.maxSegBytes <= 0 || active.size == 0 || active.size+incoming <= j.maxSegBytes {
		return nil
	}

	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return err
	}
	j.segments = append(j.segments, segment{seq: active.seq + 1, path: j.segmentPath(active.seq + 1)})

	for j.maxSegments > 0 && len(j.segments) > j.maxSegments {
		oldest := j.segments[0]
		if err := os.Remove(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		j.sizeBytes -= oldest.size
		j.segments = j.segments[1:]
	}
	return j.openActive()
}

// Iterate calls fn for every record with id >= from, oldest first.
func (j *FileJournal) Iterate(from ports.JournalEntryID, fn func(id ports.JournalEntryID, rec ports.JournalRecord) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	for _, seg := range j.segments {
		if err := iterateSegment(seg.path, from, false, fn); err != nil {
			return err
		}
	}
	return nil
}

// iterateSegment replays one segment. With tornTail set, a partial record at
// the end is treated as the end of the segment instead of corruption.
func iterateSegment(path string, from ports.JournalEntryID, tornTail bool, fn func(ports.JournalEntryID, ports.JournalRecord) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || (tornTail && errors.Is(err, io.ErrUnexpectedEOF)) {
				return nil
			}
			return fmt.Errorf("journal iterate truncated header: %w", err)
		}
		id := ports.JournalEntryID(binary.BigEndian.Uint64(hdr[0:8]))
		l := binary.BigEndian.Uint32(hdr[8:12])

		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			if tornTail && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
				return nil
			}
			return fmt.Errorf("corrupt journal: %w", err)
		}
		if id < from {
			continue
		}

		var rec ports.JournalRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return fmt.Errorf("corrupt journal entry %d: %w", id, err)
		}
		if err := fn(id, rec); err != nil {
			return err
		}
	}
}

func (j *FileJournal) Stats() ports.JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return ports.JournalStats{
		LatestAppended: j.nextID,
		SizeBytes:      j.sizeBytes,
		Segments:       len(j.segments),
	}
}

// Sync flushes buffered records and fsyncs the active segment.
func (j *FileJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}

var _ ports.Journal = (*FileJournal)(nil)
