package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/floor"
	"github.com/tbourn/hoststand/internal/repo"
)

// AvailabilityRequest asks whether a party fits at a date and time.
type AvailabilityRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	PartySize int    `json:"party_size"`
}

// AvailabilityResult is the slot check plus alternate times when the slot
// does not fit. It is always well formed.
type AvailabilityResult struct {
	Date string `json:"date"`
	floor.SlotResult
	Suggestions []floor.SlotResult `json:"suggested_times"`
}

// AvailabilityService answers slot questions for callers and voice agents.
type AvailabilityService struct {
	Deps
}

// Check validates req and computes availability.
func (s *AvailabilityService) Check(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	tr := otel.Tracer("services/AvailabilityService")
	ctx, span := tr.Start(ctx, "Check",
		trace.WithAttributes(
			attribute.String("slot.date", req.Date),
			attribute.String("slot.time", req.Time),
			attribute.Int("party.size", req.PartySize),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.check(ctx, req)
	s.observe("check-availability", start, err)
	return res, err
}

func (s *AvailabilityService) check(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error) {
	if err := validateSlot(req.Date, req.Time, req.PartySize); err != nil {
		return nil, err
	}
	return s.checkAvailability(ctx, s.DB, req, "")
}

func validateSlot(date, clock string, partySize int) error {
	if err := floor.ValidateDate(date); err != nil {
		return validationf("%v", err)
	}
	if err := floor.ValidateTime(clock); err != nil {
		return validationf("%v", err)
	}
	if err := floor.ValidatePartySize(partySize); err != nil {
		return validationf("%v", err)
	}
	return nil
}

// checkAvailability computes the slot result for req, ignoring the
// reservation excludeID (a booking being modified).
//
// Bookings are the pending and confirmed reservations on the date. When the
// date is today, seats held by active service records are applied as live
// occupancy at every sampled slot.
func (d Deps) checkAvailability(ctx context.Context, db *gorm.DB, req AvailabilityRequest, excludeID string) (*AvailabilityResult, error) {
	start, err := floor.ParseClock(req.Time)
	if err != nil {
		return nil, validationf("%v", err)
	}
	capacity, err := d.totalCapacity(ctx, db)
	if err != nil {
		return nil, err
	}

	booked, err := readOnce(ctx, "list-reservations", func() ([]domain.Reservation, error) {
		return repo.ListReservations(ctx, db, repo.ReservationFilter{
			Date:     req.Date,
			Statuses: []domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed},
		})
	})
	if err != nil {
		return nil, translate(err, "reservations")
	}
	bookings := make([]floor.Booking, 0, len(booked))
	for _, r := range booked {
		if r.ID == excludeID || r.CheckedIn() {
			continue
		}
		c, err := floor.ParseClock(r.Time)
		if err != nil {
			continue
		}
		bookings = append(bookings, floor.Booking{Start: c, PartySize: r.PartySize})
	}

	live, err := d.liveOccupancy(ctx, db, req.Date)
	if err != nil {
		return nil, err
	}

	calc := d.calculator()
	liveAt := func(c floor.Clock) int {
		if live == nil {
			return 0
		}
		return live(c)
	}
	slot := calc.CheckSlot(start, req.PartySize, bookings, capacity, liveAt(start))

	today := d.now().Format(dateLayout)
	nowClock := floor.ClockOf(d.now())
	w := d.Settings.Window
	switch {
	case !slot.Available:
	case req.Date < today:
		slot.Available, slot.Reason = false, "date has already passed"
	case start < w.Open || start.Add(d.Settings.Duration.For(req.PartySize)) > w.Close:
		slot.Available, slot.Reason = false, "outside service hours "+w.Open.String()+"-"+w.Close.String()
	case req.Date == today && start < nowClock:
		slot.Available, slot.Reason = false, "time has already passed"
	}

	res := &AvailabilityResult{Date: req.Date, SlotResult: slot, Suggestions: []floor.SlotResult{}}
	if !slot.Available && req.Date >= today {
		limit := d.Settings.SuggestionLimit
		if limit <= 0 {
			limit = 3
		}
		// Ask for every fitting slot so past ones can be dropped before capping.
		sugg := calc.SuggestTimes(start, req.PartySize, bookings, capacity, w, d.Settings.Step, 24*60, live)
		if req.Date == today {
			sugg = dropPast(sugg, nowClock)
		}
		if len(sugg) > limit {
			sugg = sugg[:limit]
		}
		res.Suggestions = sugg
	}
	return res, nil
}

func dropPast(in []floor.SlotResult, now floor.Clock) []floor.SlotResult {
	out := in[:0]
	for _, s := range in {
		if c, err := floor.ParseClock(s.Time); err == nil && c >= now {
			out = append(out, s)
		}
	}
	return out
}

// liveOccupancy returns, for today only, a function giving the capacity of
// occupied tables still held at a slot. A table frees at its service's
// estimated departure; one past departure, or with no service on record, is
// assumed to free within one sampling step.
func (d Deps) liveOccupancy(ctx context.Context, db *gorm.DB, date string) (func(floor.Clock) int, error) {
	now := d.now()
	if date != now.Format(dateLayout) {
		return nil, nil
	}
	occupied, err := readOnce(ctx, "list-tables", func() ([]domain.Table, error) {
		return repo.ListTables(ctx, db, repo.TableFilter{Statuses: []domain.TableStatus{domain.TableOccupied}})
	})
	if err != nil {
		return nil, translate(err, "tables")
	}
	if len(occupied) == 0 {
		return nil, nil
	}
	active, err := readOnce(ctx, "list-services", func() ([]domain.ServiceRecord, error) {
		return repo.ListServiceRecords(ctx, db, domain.ServiceActive)
	})
	if err != nil {
		return nil, translate(err, "service records")
	}
	departs := make(map[string]time.Time, len(active))
	for _, sr := range active {
		departs[sr.ID] = sr.EstimatedDeparture
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc())
	sample := 15 * time.Minute
	return func(c floor.Clock) int {
		at := day.Add(time.Duration(c) * time.Minute)
		seats := 0
		for _, t := range occupied {
			var end time.Time
			if t.CurrentServiceID != nil {
				end = departs[*t.CurrentServiceID]
			}
			if !end.After(now) {
				end = now.Add(sample)
			}
			if end.After(at) {
				seats += t.Capacity
			}
		}
		return seats
	}, nil
}
