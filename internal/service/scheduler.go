package service

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the auto-phase sweep on a fixed interval
type Scheduler struct {
	autoPhase *AutoPhaseService
	interval  time.Duration
}

// NewScheduler creates a new auto-phase scheduler
func NewScheduler(autoPhase *AutoPhaseService, interval time.Duration) *Scheduler {
	return &Scheduler{
		autoPhase: autoPhase,
		interval:  interval,
	}
}

// Run sweeps every interval until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("Auto-phase scheduler started (every %s)", s.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("Auto-phase scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.autoPhase.CheckAndAdvanceAll(ctx)
	if err != nil {
		log.Printf("Auto-phase sweep failed: %v", err)
		return
	}
	if report.Advanced > 0 {
		log.Printf("Auto-phase sweep: %d of %d games advanced", report.Advanced, report.Checked)
	}
}
