package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/events"
	"github.com/tbourn/hoststand/internal/floor"
	"github.com/tbourn/hoststand/internal/repo"
)

var openReservation = []domain.ReservationStatus{domain.ReservationPending, domain.ReservationConfirmed}

// CreateReservationRequest books a party.
type CreateReservationRequest struct {
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PartySize       int    `json:"party_size"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	SpecialRequests string `json:"special_requests"`
}

// ModifyReservationRequest changes a booking. Nil fields are kept.
type ModifyReservationRequest struct {
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	PartySize       *int    `json:"party_size"`
	SpecialRequests *string `json:"special_requests"`
}

// ReservationResult carries the booking (nil when nothing was booked) and
// the availability that decided it.
type ReservationResult struct {
	Booked       bool                `json:"booked"`
	Reservation  *domain.Reservation `json:"reservation,omitempty"`
	Availability *AvailabilityResult `json:"availability,omitempty"`
	Message      string              `json:"message"`
}

// LookupQuery finds a reservation. The first non-empty field wins in the
// order ReservationID, Phone, Name.
type LookupQuery struct {
	ReservationID string `json:"reservation_id" form:"reservation_id"`
	Phone         string `json:"phone"          form:"phone"`
	Name          string `json:"customer_name"  form:"customer_name"`
}

func (q LookupQuery) empty() bool {
	return strings.TrimSpace(q.ReservationID) == "" && strings.TrimSpace(q.Phone) == "" && strings.TrimSpace(q.Name) == ""
}

// ReservationService owns the customer-facing reservation flows. Seating
// from a reservation goes through SeatingService.
type ReservationService struct {
	Deps
}

// Create validates req, checks the slot, and stores a confirmed reservation.
// An unavailable slot is not an error: the result has Booked=false and the
// suggested times.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (*ReservationResult, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("slot.date", req.Date),
			attribute.String("slot.time", req.Time),
			attribute.Int("party.size", req.PartySize),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := s.create(ctx, req)
	s.observe("create-reservation", start, err)
	return res, err
}

func (s *ReservationService) create(ctx context.Context, req CreateReservationRequest) (*ReservationResult, error) {
	cust := floor.Customer{Name: req.CustomerName, Phone: req.Phone, Email: req.Email}
	if err := cust.Validate(); err != nil {
		return nil, validationf("%v", err)
	}
	if err := validateSlot(req.Date, req.Time, req.PartySize); err != nil {
		return nil, err
	}
	if req.Date < s.now().Format(dateLayout) {
		return nil, validationf("reservation date %s is in the past", req.Date)
	}

	var out *ReservationResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		avail, err := s.checkAvailability(ctx, tx, AvailabilityRequest{Date: req.Date, Time: req.Time, PartySize: req.PartySize}, "")
		if err != nil {
			return err
		}
		if !avail.Available {
			out = &ReservationResult{Availability: avail, Message: unavailableMessage(avail)}
			return nil
		}
		now := s.now()
		code, err := uniqueCode(ctx, tx, &domain.Reservation{}, func() string { return floor.ReservationCode(now) })
		if err != nil {
			return err
		}
		r := &domain.Reservation{
			Code:            code,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			Phone:           strings.TrimSpace(req.Phone),
			Email:           strings.TrimSpace(req.Email),
			PartySize:       req.PartySize,
			Date:            req.Date,
			Time:            req.Time,
			SpecialRequests: strings.TrimSpace(req.SpecialRequests),
			Status:          domain.ReservationConfirmed,
		}
		if err := repo.CreateReservation(ctx, tx, r); err != nil {
			return translate(err, "reservation")
		}
		out = &ReservationResult{
			Booked:       true,
			Reservation:  r,
			Availability: avail,
			Message:      "Reservation " + r.Code + " confirmed for " + r.Date + " at " + r.Time,
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "reservation")
	}
	return out, nil
}

func unavailableMessage(a *AvailabilityResult) string {
	msg := "That time is not available"
	if a.Reason != "" {
		msg += " (" + a.Reason + ")"
	}
	if len(a.Suggestions) == 0 {
		return msg + "."
	}
	times := make([]string, len(a.Suggestions))
	for i, sg := range a.Suggestions {
		times[i] = sg.Time
	}
	return msg + ". Available times: " + strings.Join(times, ", ")
}

// Lookup finds one reservation by id, phone, or name.
func (s *ReservationService) Lookup(ctx context.Context, q LookupQuery) (*domain.Reservation, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "Lookup")
	defer span.End()

	start := time.Now()
	r, err := s.lookupReservation(ctx, s.DB, q)
	s.observe("lookup-reservation", start, err)
	return r, err
}

// lookupReservation tries an exact id or code, then the phone number
// compared as digits, then a case-folded name substring. Among several
// matches it prefers open reservations for today, then the nearest upcoming
// open one, then the most recent.
func (d Deps) lookupReservation(ctx context.Context, db *gorm.DB, q LookupQuery) (*domain.Reservation, error) {
	if q.empty() {
		return nil, validationf("reservation_id, phone or customer_name is required")
	}
	if id := strings.TrimSpace(q.ReservationID); id != "" {
		r, err := readOnce(ctx, "get-reservation", func() (*domain.Reservation, error) {
			return repo.GetReservation(ctx, db, id)
		})
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, translate(err, "reservation")
		}
		if strings.TrimSpace(q.Phone) == "" && strings.TrimSpace(q.Name) == "" {
			return nil, notFoundf("reservation %s not found", id)
		}
	}

	all, err := readOnce(ctx, "list-reservations", func() ([]domain.Reservation, error) {
		return repo.ListReservations(ctx, db, repo.ReservationFilter{})
	})
	if err != nil {
		return nil, translate(err, "reservations")
	}

	var matches []domain.Reservation
	if digits := floor.DigitsOnly(q.Phone); digits != "" {
		for _, r := range all {
			if floor.DigitsOnly(r.Phone) == digits {
				matches = append(matches, r)
			}
		}
	}
	if len(matches) == 0 && strings.TrimSpace(q.Name) != "" {
		for _, r := range all {
			if floor.ContainsFold(r.CustomerName, q.Name) {
				matches = append(matches, r)
			}
		}
	}
	if len(matches) == 0 {
		return nil, notFoundf("no reservation matches the given details")
	}

	today := d.now().Format(dateLayout)
	rank := func(r domain.Reservation) int {
		switch {
		case r.Status.Open() && r.Date == today:
			return 0
		case r.Status.Open() && r.Date > today:
			return 1
		case r.Date == today:
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := rank(matches[i]), rank(matches[j])
		if ri != rj {
			return ri < rj
		}
		a, b := matches[i].Date+" "+matches[i].Time, matches[j].Date+" "+matches[j].Time
		if ri == 3 {
			return a > b // most recent past first
		}
		return a < b
	})
	return &matches[0], nil
}

// Modify changes date, time, party size or requests of an open reservation,
// re-checking availability without counting the reservation itself.
func (s *ReservationService) Modify(ctx context.Context, ref string, req ModifyReservationRequest) (*ReservationResult, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "Modify", trace.WithAttributes(attribute.String("reservation.ref", ref)))
	defer span.End()

	start := time.Now()
	res, err := s.modify(ctx, ref, req)
	s.observe("modify-reservation", start, err)
	return res, err
}

func (s *ReservationService) modify(ctx context.Context, ref string, req ModifyReservationRequest) (*ReservationResult, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, validationf("reservation id is required")
	}
	var out *ReservationResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetReservation(ctx, tx, ref)
		if err != nil {
			return translate(err, "reservation")
		}
		if !r.Status.Open() {
			return conflictf("reservation %s is %s and cannot be modified", r.Code, r.Status.Stored())
		}

		date, clock, size := r.Date, r.Time, r.PartySize
		if req.Date != nil {
			date = *req.Date
		}
		if req.Time != nil {
			clock = *req.Time
		}
		if req.PartySize != nil {
			size = *req.PartySize
		}
		if err := validateSlot(date, clock, size); err != nil {
			return err
		}

		updates := map[string]any{}
		if req.SpecialRequests != nil {
			updates["special_requests"] = strings.TrimSpace(*req.SpecialRequests)
			r.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
		}
		var avail *AvailabilityResult
		if date != r.Date || clock != r.Time || size != r.PartySize {
			avail, err = s.checkAvailability(ctx, tx, AvailabilityRequest{Date: date, Time: clock, PartySize: size}, r.ID)
			if err != nil {
				return err
			}
			if !avail.Available {
				out = &ReservationResult{Reservation: r, Availability: avail, Message: unavailableMessage(avail)}
				return nil
			}
			updates["date"], updates["time"], updates["party_size"] = date, clock, size
			r.Date, r.Time, r.PartySize = date, clock, size
		}
		if len(updates) > 0 {
			if err := repo.UpdateReservation(ctx, tx, r.ID, openReservation, updates); err != nil {
				return translate(err, "reservation")
			}
		}
		out = &ReservationResult{Booked: true, Reservation: r, Availability: avail, Message: "Reservation " + r.Code + " updated"}
		return nil
	})
	if err != nil {
		return nil, translate(err, "reservation")
	}
	return out, nil
}

// Cancel moves an open reservation to cancelled and releases any table held
// for it.
func (s *ReservationService) Cancel(ctx context.Context, ref string) (*domain.Reservation, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "Cancel", trace.WithAttributes(attribute.String("reservation.ref", ref)))
	defer span.End()

	start := time.Now()
	r, released, err := s.closeReservation(ctx, ref, domain.ReservationCancelled)
	s.observe("cancel-reservation", start, err)
	if err != nil {
		return nil, err
	}
	evs := []events.Event{{Type: events.ReservationCanceled, ReservationID: r.Code, PartySize: r.PartySize}}
	s.publish(ctx, append(evs, released...)...)
	return r, nil
}

// closeReservation ends an open reservation with status to and frees tables
// held for it, all in one transaction.
func (s *ReservationService) closeReservation(ctx context.Context, ref string, to domain.ReservationStatus) (*domain.Reservation, []events.Event, error) {
	var (
		r        *domain.Reservation
		released []events.Event
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		r, err = repo.GetReservation(ctx, tx, ref)
		if err != nil {
			return translate(err, "reservation")
		}
		if !r.Status.Open() {
			return conflictf("reservation %s is already %s", r.Code, r.Status.Stored())
		}
		if err := repo.UpdateReservation(ctx, tx, r.ID, openReservation, map[string]any{"status": to}); err != nil {
			return translate(err, "reservation")
		}
		r.Status = to
		released, err = releaseHolds(ctx, tx, r)
		return err
	})
	if err != nil {
		return nil, nil, translate(err, "reservation")
	}
	return r, released, nil
}

// releaseHolds returns tables held for r to available.
func releaseHolds(ctx context.Context, tx *gorm.DB, r *domain.Reservation) ([]events.Event, error) {
	held, err := repo.ListTables(ctx, tx, repo.TableFilter{
		HeldFor:  r.ID,
		Statuses: []domain.TableStatus{domain.TableReserved},
	})
	if err != nil {
		return nil, translate(err, "tables")
	}
	var evs []events.Event
	for _, t := range held {
		if err := repo.TransitionTable(ctx, tx, t.Number, []domain.TableStatus{domain.TableReserved}, domain.TableAvailable, nil, nil); err != nil {
			return nil, translate(err, "table")
		}
		evs = append(evs, events.Event{
			Type:           events.TableStatusChanged,
			TableNumber:    t.Number,
			Status:         domain.TableAvailable.Stored(),
			PreviousStatus: domain.TableReserved.Stored(),
			ReservationID:  r.Code,
			Reason:         "hold released",
		})
	}
	return evs, nil
}

// HoldTable reserves an available table for an open reservation. Seat-party
// accepts the held table only for that reservation.
func (s *ReservationService) HoldTable(ctx context.Context, ref string, number int) (*domain.Table, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "HoldTable",
		trace.WithAttributes(attribute.String("reservation.ref", ref), attribute.Int("table.number", number)),
	)
	defer span.End()

	start := time.Now()
	var (
		t *domain.Table
		r *domain.Reservation
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		r, err = repo.GetReservation(ctx, tx, ref)
		if err != nil {
			return translate(err, "reservation")
		}
		if !r.Status.Open() {
			return conflictf("reservation %s is %s", r.Code, r.Status.Stored())
		}
		t, err = repo.GetTableByNumber(ctx, tx, number)
		if err != nil || !t.IsActive {
			return notFoundf("table %d not found", number)
		}
		if err := floor.CheckTransition(number, t.Status, domain.TableReserved); err != nil {
			return conflictf("%v", err)
		}
		if err := repo.TransitionTable(ctx, tx, number, floor.AllowedFrom(domain.TableReserved), domain.TableReserved, nil, &r.ID); err != nil {
			return translate(err, "table")
		}
		t, err = repo.GetTableByNumber(ctx, tx, number)
		return err
	})
	err = translate(err, "table")
	s.observe("hold-table", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:           events.TableStatusChanged,
		TableNumber:    number,
		Status:         domain.TableReserved.Stored(),
		PreviousStatus: domain.TableAvailable.Stored(),
		ReservationID:  r.Code,
	})
	return t, nil
}

// MarkLateNoShows closes today's confirmed reservations that were never
// checked in and are later than the grace period. It returns how many were
// marked.
func (s *ReservationService) MarkLateNoShows(ctx context.Context) (int, error) {
	tr := otel.Tracer("services/ReservationService")
	ctx, span := tr.Start(ctx, "MarkLateNoShows")
	defer span.End()

	start := time.Now()
	now := s.now()
	due, err := readOnce(ctx, "list-reservations", func() ([]domain.Reservation, error) {
		return repo.ListReservations(ctx, s.DB, repo.ReservationFilter{
			Date:     now.Format(dateLayout),
			Statuses: []domain.ReservationStatus{domain.ReservationConfirmed},
		})
	})
	if err != nil {
		err = translate(err, "reservations")
		s.observe("mark-no-shows", start, err)
		return 0, err
	}

	cutoff := floor.ClockOf(now).Add(-s.Settings.NoShowGrace)
	marked := 0
	for _, r := range due {
		c, perr := floor.ParseClock(r.Time)
		if perr != nil || r.CheckedIn() || c >= cutoff {
			continue
		}
		closed, released, cerr := s.closeReservation(ctx, r.ID, domain.ReservationNoShow)
		if errors.Is(cerr, ErrConflict) {
			continue
		}
		if cerr != nil {
			s.observe("mark-no-shows", start, cerr)
			return marked, cerr
		}
		marked++
		logger(ctx).Info().Str("reservation", closed.Code).Str("time", closed.Time).Msg("reservation marked no-show")
		evs := []events.Event{{Type: events.ReservationNoShow, ReservationID: closed.Code, PartySize: closed.PartySize}}
		s.publish(ctx, append(evs, released...)...)
	}
	s.observe("mark-no-shows", start, nil)
	return marked, nil
}
