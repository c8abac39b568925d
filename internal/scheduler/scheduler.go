// Package scheduler emits synthetic schedule ticks from a cron expression.
// It backs deployments whose transport produces no heartbeat events of its
// own; the ticks flow into the same event stream the adapters feed.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"noticebot/internal/transport"
	logx "noticebot/pkg/logx"
)

// Scheduler wraps a cron runner that pushes meta events into out. Ticks
// are dropped, not queued, when the consumer is behind; the schedule gate
// downstream tolerates missing and duplicate ticks.
type Scheduler struct {
	log  logx.Logger
	cron *cron.Cron
	out  chan<- transport.Event
}

// New builds a scheduler for the given cron spec (standard 5-field form,
// e.g. "* * * * *" for every minute). tz may be empty for local time.
func New(spec, tz string, out chan<- transport.Event, log logx.Logger) (*Scheduler, error) {
	loc := time.Local
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	s := &Scheduler{log: log, out: out}
	s.cron = cron.New(cron.WithLocation(loc))
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	select {
	case s.out <- transport.Event{Kind: transport.EventMeta}:
	default:
		s.log.Debug("schedule tick dropped, event channel full")
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running tick, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
