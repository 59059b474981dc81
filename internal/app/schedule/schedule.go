// Package schedule runs the node's periodic jobs: announcements, telemetry
// broadcasts and ambient sampling.
package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. A job still running when its next slot
// arrives is skipped.
type Scheduler struct {
	cron *cron.Cron
	obs  ports.Observability

	mu   sync.Mutex
	ctx  context.Context
	jobs map[string]JobFunc
}

func New(obs ports.Observability) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		obs:  obs,
		ctx:  context.Background(),
		jobs: make(map[string]JobFunc),
	}
}

// Add registers fn under name with a standard cron spec or an "@every" descriptor.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name) }); err != nil {
		return fmt.Errorf("error scheduling %s job: %w", name, err)
	}
	s.jobs[name] = fn
	return nil
}

// Trigger runs a registered job immediately on the caller's goroutine.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not scheduled", name)
	}
	s.run(name)
	return nil
}

func (s *Scheduler) run(name string) {
	s.mu.Lock()
	fn, ctx := s.jobs[name], s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err := fn(ctx); err != nil {
		s.obs.LogError("scheduled job failed", err, ports.Field{Key: "job", Value: name})
	}
}

// Start begins firing jobs. Jobs receive ctx and stop running once it is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
