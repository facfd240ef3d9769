// Package sweeper runs periodic floor housekeeping: closing reservations
// whose party never arrived and dropping expired idempotency records.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is one housekeeping pass. It returns how many records it changed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Sweeper runs its tasks on a fixed interval.
type Sweeper struct {
	Interval time.Duration
	Tasks    []Task
}

const defaultInterval = 5 * time.Minute

// Run sweeps once immediately and then every Interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	iv := s.Interval
	if iv <= 0 {
		iv = defaultInterval
	}
	t := time.NewTicker(iv)
	defer t.Stop()

	s.Once(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Once(ctx)
		}
	}
}

// Once runs every task in order. A failing task is logged and does not stop
// the others. It returns the total records changed.
func (s *Sweeper) Once(ctx context.Context) int64 {
	var total int64
	for _, task := range s.Tasks {
		if ctx.Err() != nil {
			return total
		}
		start := time.Now()
		n, err := task.Run(ctx)
		if err != nil {
			log.Warn().Err(err).Str("task", task.Name).Msg("sweep task failed")
			continue
		}
		total += n
		if n > 0 {
			log.Info().Str("task", task.Name).Int64("changed", n).Dur("took", time.Since(start)).Msg("sweep task done")
		}
	}
	return total
}
