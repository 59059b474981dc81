package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

type errObs struct{ errs []string }

func (*errObs) LogInfo(string, ...ports.Field)                         {}
func (o *errObs) LogError(msg string, _ error, fields ...ports.Field) { o.errs = append(o.errs, fields[0].Value.(string)) }
func (*errObs) LogCritical(string, error, ...ports.Field)              {}
func (*errObs) IncCounter(string, float64)                             {}
func (*errObs) ObserveLatency(string, float64)                         {}
func (*errObs) SetGauge(string, float64)                               {}
func (*errObs) RecordDiscard(string, []byte, error)                    {}

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(&errObs{})
	if err := s.Add("telemetry", "every five minutes", func(context.Context) error { return nil }); err == nil {
		t.Fatalf("expected spec error")
	}
	if s.Jobs() != 0 {
		t.Fatalf("bad job registered")
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	s := New(&errObs{})
	noop := func(context.Context) error { return nil }
	if err := s.Add("announce", "@every 15m", noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add("announce", "@every 1m", noop); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestTriggerRunsAndLogsFailures(t *testing.T) {
	obs := &errObs{}
	s := New(obs)
	runs := 0
	if err := s.Add("ambient", "@every 10s", func(context.Context) error {
		runs++
		return errors.New("bus timeout")
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Trigger("ambient"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if runs != 1 {
		t.Fatalf("expected one run, got %d", runs)
	}
	if len(obs.errs) != 1 || obs.errs[0] != "ambient" {
		t.Fatalf("expected failure logged for ambient, got %v", obs.errs)
	}
	if err := s.Trigger("missing"); err == nil {
		t.Fatalf("expected unknown job error")
	}
}

func TestJobsSkippedAfterCancel(t *testing.T) {
	s := New(&errObs{})
	runs := 0
	_ = s.Add("telemetry", "@every 5m", func(context.Context) error { runs++; return nil })
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	s.Stop()
	_ = s.Trigger("telemetry")
	if runs != 0 {
		t.Fatalf("job ran after cancellation")
	}
}
