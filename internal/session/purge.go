package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultPurgeSchedule runs the expiry sweep every 15 minutes.
const DefaultPurgeSchedule = "@every 15m"

// Purger runs Manager.Purge on a cron schedule.
type Purger struct {
	cron    *cron.Cron
	manager *Manager
}

// NewPurger validates schedule (standard cron syntax or @every descriptors)
// and registers the sweep.
func NewPurger(m *Manager, schedule string) (*Purger, error) {
	p := &Purger{cron: cron.New(), manager: m}
	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, fmt.Errorf("parsing purge schedule %q: %w", schedule, err)
	}
	return p, nil
}

// Start runs the schedule in the background.
func (p *Purger) Start() {
	log.Info().Msg("session purge scheduler started")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("session purge scheduler stopped")
}

func (p *Purger) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := p.manager.Purge(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to purge sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("removed", n).Msg("purged sessions")
	}
}
