package services

import (
	"context"
	"log"
	"time"
)

// Sweepable is anything holding expiring in-process entries.
type Sweepable interface {
	Sweep(ctx context.Context) int
}

// Sweeper periodically removes expired cache entries and rate-limit records.
type Sweeper struct {
	interval time.Duration
	targets  map[string]Sweepable
}

func NewSweeper(interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{interval: interval, targets: make(map[string]Sweepable)}
}

// Add registers a target. Must be called before Start.
func (s *Sweeper) Add(name string, target Sweepable) {
	if target == nil {
		return
	}
	s.targets[name] = target
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("sweeper started (interval: %v, targets: %d)", s.interval, len(s.targets))
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper stopping")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs one pass and returns the total number of removed entries.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for name, target := range s.targets {
		if n := target.Sweep(ctx); n > 0 {
			log.Printf("sweeper: %s removed %d expired entries", name, n)
			total += n
		}
	}
	return total
}
