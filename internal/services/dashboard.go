package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/floor"
	"github.com/tbourn/hoststand/internal/repo"
)

// ActiveParty is a seated party with its timing against the expected stay.
type ActiveParty struct {
	domain.ServiceRecord
	TimeElapsed   int  `json:"time_elapsed"`
	TimeRemaining int  `json:"time_remaining"`
	IsOverdue     bool `json:"is_overdue"`
}

// DashboardSummary is the headline numbers of the floor.
type DashboardSummary struct {
	floor.FloorCounts
	OccupancyPercent     int `json:"occupancy_percentage"`
	ActiveParties        int `json:"active_parties"`
	UpcomingReservations int `json:"upcoming_reservations"`
	WaitingParties       int `json:"waiting_parties"`
}

// Dashboard is the host-stand view of the whole floor.
type Dashboard struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Tables      []domain.Table         `json:"tables"`
	Active      []ActiveParty          `json:"active_parties"`
	Upcoming    []domain.Reservation   `json:"upcoming_reservations"`
	Waitlist    []domain.WaitlistEntry `json:"waitlist"`
	Summary     DashboardSummary       `json:"summary"`
}

// Dashboard assembles tables, active parties, today's upcoming reservations
// and the queue from one read of each.
func (s *SeatingService) Dashboard(ctx context.Context) (*Dashboard, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "Dashboard")
	defer span.End()

	start := time.Now()
	d, err := s.dashboard(ctx)
	s.observe("dashboard", start, err)
	if err != nil {
		return nil, err
	}
	m := s.metrics()
	m.SetFloorGauge(domain.TableAvailable.Stored(), d.Summary.Available)
	m.SetFloorGauge(domain.TableOccupied.Stored(), d.Summary.Occupied)
	m.SetFloorGauge(domain.TableBeingCleaned.Stored(), d.Summary.BeingCleaned)
	m.SetFloorGauge(domain.TableReserved.Stored(), d.Summary.Reserved)
	m.SetWaitlistLength(d.Summary.WaitingParties)
	return d, nil
}

func (s *SeatingService) dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now()

	tables, err := s.ListTables(ctx, false)
	if err != nil {
		return nil, err
	}
	records, err := readOnce(ctx, "list-services", func() ([]domain.ServiceRecord, error) {
		return repo.ListServiceRecords(ctx, s.DB, domain.ServiceActive)
	})
	if err != nil {
		return nil, translate(err, "service records")
	}
	todays, err := readOnce(ctx, "list-reservations", func() ([]domain.Reservation, error) {
		return repo.ListReservations(ctx, s.DB, repo.ReservationFilter{
			Date:     now.Format(dateLayout),
			Statuses: openReservation,
		})
	})
	if err != nil {
		return nil, translate(err, "reservations")
	}
	queue, err := readOnce(ctx, "list-waitlist", func() ([]domain.WaitlistEntry, error) {
		return repo.ListWaitlist(ctx, s.DB, activeWaitlist...)
	})
	if err != nil {
		return nil, translate(err, "waitlist")
	}

	active := make([]ActiveParty, 0, len(records))
	for _, sr := range records {
		active = append(active, partyTiming(sr, now))
	}

	cutoff := floor.ClockOf(now).Add(-s.Settings.NoShowGrace)
	upcoming := make([]domain.Reservation, 0, len(todays))
	for _, r := range todays {
		c, err := floor.ParseClock(r.Time)
		if err != nil || r.CheckedIn() || c < cutoff {
			continue
		}
		upcoming = append(upcoming, r)
	}
	if queue == nil {
		queue = []domain.WaitlistEntry{}
	}

	counts := floor.CountTables(tables)
	return &Dashboard{
		GeneratedAt: now.UTC(),
		Tables:      tables,
		Active:      active,
		Upcoming:    upcoming,
		Waitlist:    queue,
		Summary: DashboardSummary{
			FloorCounts:          counts,
			OccupancyPercent:     counts.OccupancyPercent(),
			ActiveParties:        len(active),
			UpcomingReservations: len(upcoming),
			WaitingParties:       len(queue),
		},
	}, nil
}

// partyTiming computes elapsed and remaining minutes. Remaining floors at 0.
func partyTiming(sr domain.ServiceRecord, now time.Time) ActiveParty {
	p := ActiveParty{ServiceRecord: sr}
	p.TimeElapsed = int(now.Sub(sr.SeatedAt) / time.Minute)
	if p.TimeElapsed < 0 {
		p.TimeElapsed = 0
	}
	left := sr.EstimatedDeparture.Sub(now)
	if left > 0 {
		p.TimeRemaining = int(left / time.Minute)
	}
	p.IsOverdue = now.After(sr.EstimatedDeparture)
	return p
}
