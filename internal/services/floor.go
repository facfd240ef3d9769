package services

import (
	"context"

	"github.com/tbourn/hoststand/internal/sweeper"
)

// Floor bundles every service over one set of Deps, wired the way the
// server and the CLI use them.
type Floor struct {
	Seating      *SeatingService
	Reservations *ReservationService
	Availability *AvailabilityService
	Waitlist     *WaitlistService
}

// NewFloor builds the services. The seating service falls back to the
// returned waitlist for walk-ins nothing fits.
func NewFloor(d Deps) *Floor {
	wl := &WaitlistService{Deps: d}
	return &Floor{
		Seating:      &SeatingService{Deps: d, Waitlist: wl},
		Reservations: &ReservationService{Deps: d},
		Availability: &AvailabilityService{Deps: d},
		Waitlist:     wl,
	}
}

// SweepTasks are the periodic jobs: late reservations become no-shows and
// expired idempotency keys are purged.
func (f *Floor) SweepTasks() []sweeper.Task {
	return []sweeper.Task{
		{Name: "no-show", Run: func(ctx context.Context) (int64, error) {
			n, err := f.Reservations.MarkLateNoShows(ctx)
			return int64(n), err
		}},
		{Name: "idempotency-purge", Run: f.Seating.PurgeIdempotencyKeys},
	}
}
