package pipeline

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/app/shared"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// JournalWriter is the single writer of durable storage. It drains the
// journal lanes round-robin and holds the storage lock only around each append.
type JournalWriter struct {
	shared  *shared.Context
	journal ports.Journal
	self    domain.NodeID
	pol     ports.Policy
	obs     ports.Observability
	now     func() time.Time

	lanes  []*shared.Lane
	cursor int

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewJournalWriter(sc *shared.Context, j ports.Journal, self domain.NodeID, pol ports.Policy, obs ports.Observability) *JournalWriter {
	var lanes []*shared.Lane
	for _, l := range sc.Lanes() {
		if l.Journal != nil {
			lanes = append(lanes, l)
		}
	}
	return &JournalWriter{
		shared:  sc,
		journal: j,
		self:    self,
		pol:     pol,
		obs:     obs,
		now:     time.Now,
		lanes:   lanes,
	}
}

// WriteOnce appends at most one event. It reports whether an event was dequeued.
func (w *JournalWriter) WriteOnce() (bool, error) {
	n := len(w.lanes)
	for i := 0; i < n; i++ {
		idx := (w.cursor + i) % n
		ev, ok := w.lanes[idx].Journal.TryReceive()
		if !ok {
			continue
		}
		w.cursor = (idx + 1) % n
		return true, w.append(ev)
	}
	return false, nil
}

func (w *JournalWriter) append(ev domain.SensorEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		w.fail("journal_marshal_failed", err)
		return err
	}
	rec := ports.JournalRecord{
		UUID:       uuid.NewString(),
		Modality:   ev.Modality().String(),
		NodeID:     uint32(w.self),
		CapturedAt: ev.CapturedAt(),
		LoggedAt:   w.now(),
		Event:      body,
	}

	err = w.shared.Storage.With(w.pol.StorageTimeout, func() error {
		_, err := w.journal.Append(rec)
		return err
	})
	if err != nil {
		w.fail("journal_append_failed", err)
		return err
	}
	w.written.Add(1)
	w.obs.IncCounter(ports.MetricJournalWritten, 1)
	w.obs.SetGauge(ports.MetricJournalSizeBytes, float64(w.journal.Stats().SizeBytes))
	return nil
}

func (w *JournalWriter) fail(msg string, err error) {
	w.failed.Add(1)
	w.obs.IncCounter(ports.MetricJournalFailed, 1)
	w.obs.LogError(msg, err)
}

func (w *JournalWriter) Run(ctx context.Context) error {
	sleep := w.pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if ok, _ := w.WriteOnce(); !ok {
			time.Sleep(sleep)
		}
	}
}

func (w *JournalWriter) Written() uint64 { return w.written.Load() }

func (w *JournalWriter) Failed() uint64 { return w.failed.Load() }
