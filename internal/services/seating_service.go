package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
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

const (
	seatPartyScope     = "seat-party"
	maxAlternatives    = 2
	noSuitableTableMsg = "No suitable tables available"
	walkInName         = "Walk-in"
)

// CheckInResult is what the host sees when a reservation arrives. Nothing
// is written; the host confirms with SeatParty.
type CheckInResult struct {
	Reservation     *domain.Reservation `json:"reservation"`
	Recommendation  *floor.Combination  `json:"recommendation,omitempty"`
	Alternatives    []floor.Combination `json:"alternatives"`
	NoSuitableTable bool                `json:"no_suitable_table"`
	Message         string              `json:"message"`
}

// WalkInRequest describes a party at the door. Name and phone are only
// needed when the party may have to join the waitlist.
type WalkInRequest struct {
	PartySize         int    `json:"party_size"`
	PreferredLocation string `json:"preferred_location"`
	CustomerName      string `json:"customer_name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	SpecialRequests   string `json:"special_requests"`
}

// WalkInResult is a recommendation, or a waitlist fallback.
type WalkInResult struct {
	PartySize       int                   `json:"party_size"`
	Recommendation  *floor.Combination    `json:"recommendation,omitempty"`
	Alternatives    []floor.Combination   `json:"alternatives"`
	NoSuitableTable bool                  `json:"no_suitable_table"`
	Waitlisted      *domain.WaitlistEntry `json:"waitlist_entry,omitempty"`
	EstimatedWait   int                   `json:"estimated_wait_minutes,omitempty"`
	Message         string                `json:"message"`
}

// SeatRequest seats a party at one or more tables.
type SeatRequest struct {
	// Source is reservation, walk-in or waitlist; empty means walk-in, or
	// reservation/waitlist when the matching id is set.
	Source          string `json:"source"`
	ReservationID   string `json:"reservation_id"`
	WaitlistID      string `json:"waitlist_id"`
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	PartySize       int    `json:"party_size"`
	TableNumbers    []int  `json:"table_numbers"`
	SpecialRequests string `json:"special_requests"`
	// DurationMinutes overrides the expected stay.
	DurationMinutes int    `json:"estimated_duration_minutes"`
	IdempotencyKey  string `json:"-"`
}

// SeatResult is the created service record and the tables it occupies.
type SeatResult struct {
	Service       *domain.ServiceRecord `json:"service"`
	Tables        []domain.Table        `json:"tables"`
	SkippedTables []int                 `json:"skipped_tables,omitempty"`
	Partial       bool                  `json:"partial"`
	Replayed      bool                  `json:"-"`
	Message       string                `json:"message"`
}

// CompleteResult is a finished service and the tables sent to cleaning.
type CompleteResult struct {
	Service       *domain.ServiceRecord `json:"service"`
	Tables        []domain.Table        `json:"tables"`
	SkippedTables []int                 `json:"skipped_tables,omitempty"`
	Partial       bool                  `json:"partial"`
	Message       string                `json:"message"`
}

// CleanResult reports a table back in the free pool.
type CleanResult struct {
	Table        *domain.Table `json:"table"`
	AlreadyClean bool          `json:"already_clean"`
	Message      string        `json:"message"`
}

// SeatingService is the only writer of table status and service records.
type SeatingService struct {
	Deps

	// Waitlist receives walk-ins nothing fits. Nil disables the fallback.
	Waitlist *WaitlistService
}

func (s *SeatingService) policy() Policy {
	if s.Settings.Policy == PolicyBestEffort {
		return PolicyBestEffort
	}
	return PolicyStrict
}

// freeTables snapshots the floor and returns what a party may sit at.
func (s *SeatingService) freeTables(ctx context.Context, heldFor string) ([]domain.Table, error) {
	all, err := readOnce(ctx, "list-tables", func() ([]domain.Table, error) {
		return repo.ListTables(ctx, s.DB, repo.TableFilter{})
	})
	if err != nil {
		return nil, translate(err, "tables")
	}
	return floor.FreeTables(all, heldFor), nil
}

func split(cands []floor.Combination) (*floor.Combination, []floor.Combination) {
	if len(cands) == 0 {
		return nil, []floor.Combination{}
	}
	top := cands[0]
	alts := cands[1:]
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	return &top, append([]floor.Combination(nil), alts...)
}

// CheckIn finds the reservation and recommends tables for it.
func (s *SeatingService) CheckIn(ctx context.Context, q LookupQuery) (*CheckInResult, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "CheckIn")
	defer span.End()

	start := time.Now()
	res, err := s.checkIn(ctx, q)
	s.observe("check-in", start, err)
	return res, err
}

func (s *SeatingService) checkIn(ctx context.Context, q LookupQuery) (*CheckInResult, error) {
	r, err := s.lookupReservation(ctx, s.DB, q)
	if err != nil {
		return nil, err
	}
	if !r.Status.Open() || r.CheckedIn() {
		return nil, conflictf("reservation %s is %s", r.Code, r.Status.Stored())
	}
	free, err := s.freeTables(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	top, alts := split(floor.Recommend(free, r.PartySize))
	out := &CheckInResult{Reservation: r, Recommendation: top, Alternatives: alts}
	if top == nil {
		out.NoSuitableTable, out.Message = true, noSuitableTableMsg
	} else {
		out.Message = top.Reason
	}
	return out, nil
}

// CheckWalkIn recommends tables for a party without a reservation. When
// nothing fits the party goes on the waitlist if name and phone were given,
// otherwise the quoted wait is returned.
func (s *SeatingService) CheckWalkIn(ctx context.Context, req WalkInRequest) (*WalkInResult, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "CheckWalkIn",
		trace.WithAttributes(attribute.Int("party.size", req.PartySize), attribute.String("location", req.PreferredLocation)),
	)
	defer span.End()

	start := time.Now()
	res, err := s.checkWalkIn(ctx, req)
	s.observe("check-walk-in", start, err)
	return res, err
}

func (s *SeatingService) checkWalkIn(ctx context.Context, req WalkInRequest) (*WalkInResult, error) {
	if err := floor.ValidatePartySize(req.PartySize); err != nil {
		return nil, validationf("%v", err)
	}
	free, err := s.freeTables(ctx, "")
	if err != nil {
		return nil, err
	}
	free = floor.FilterByLocation(free, req.PreferredLocation)
	top, alts := split(floor.Recommend(free, req.PartySize))
	out := &WalkInResult{PartySize: req.PartySize, Recommendation: top, Alternatives: alts}
	if top != nil {
		out.Message = top.Reason
		return out, nil
	}

	out.NoSuitableTable = true
	if s.Waitlist != nil && strings.TrimSpace(req.CustomerName) != "" && strings.TrimSpace(req.Phone) != "" {
		e, err := s.Waitlist.Add(ctx, AddWaitlistRequest{
			CustomerName:    req.CustomerName,
			Phone:           req.Phone,
			Email:           req.Email,
			PartySize:       req.PartySize,
			SpecialRequests: req.SpecialRequests,
		})
		if err != nil {
			return nil, err
		}
		out.Waitlisted, out.EstimatedWait = e, e.EstimatedWait
		out.Message = fmt.Sprintf("%s. Added to the waitlist at position %d, about %d minutes", noSuitableTableMsg, e.Priority, e.EstimatedWait)
		return out, nil
	}

	ahead, err := readOnce(ctx, "count-waitlist", func() (int64, error) {
		return repo.CountActiveWaitlist(ctx, s.DB)
	})
	if err != nil {
		return nil, translate(err, "waitlist")
	}
	out.EstimatedWait = floor.EstimateWait(req.PartySize, int(ahead))
	out.Message = fmt.Sprintf("%s. Estimated wait %d minutes", noSuitableTableMsg, out.EstimatedWait)
	return out, nil
}

// SeatParty creates a service record and occupies its tables in one
// transaction. A table that is not free (or held for another reservation)
// aborts everything with a *TableConflictError.
func (s *SeatingService) SeatParty(ctx context.Context, req SeatRequest) (*SeatResult, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "SeatParty",
		trace.WithAttributes(
			attribute.String("seat.source", req.Source),
			attribute.Int("party.size", req.PartySize),
			attribute.IntSlice("table.numbers", req.TableNumbers),
		),
	)
	defer span.End()

	start := time.Now()
	res, evs, err := s.seatParty(ctx, req)
	s.observe("seat-party", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	if !res.Replayed {
		s.refreshGauges(ctx)
	}
	return res, nil
}

func normalizeSource(req *SeatRequest) error {
	switch strings.ToLower(strings.TrimSpace(req.Source)) {
	case "":
		switch {
		case req.ReservationID != "":
			req.Source = domain.SourceReservation
		case req.WaitlistID != "":
			req.Source = domain.SourceWaitlist
		default:
			req.Source = domain.SourceWalkIn
		}
	case domain.SourceReservation:
		req.Source = domain.SourceReservation
	case domain.SourceWaitlist:
		req.Source = domain.SourceWaitlist
	case domain.SourceWalkIn, "walkin", "walk_in":
		req.Source = domain.SourceWalkIn
	default:
		return validationf("unknown source %q", req.Source)
	}
	switch {
	case req.Source == domain.SourceReservation && strings.TrimSpace(req.ReservationID) == "":
		return validationf("reservation_id is required when seating a reservation")
	case req.Source == domain.SourceWaitlist && strings.TrimSpace(req.WaitlistID) == "":
		return validationf("waitlist_id is required when seating from the waitlist")
	}
	return nil
}

func uniqueInts(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, n := range in {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (s *SeatingService) seatParty(ctx context.Context, req SeatRequest) (*SeatResult, []events.Event, error) {
	if err := normalizeSource(&req); err != nil {
		return nil, nil, err
	}
	numbers := uniqueInts(req.TableNumbers)
	if len(numbers) == 0 {
		return nil, nil, validationf("table_numbers must not be empty")
	}
	if req.PartySize != 0 {
		if err := floor.ValidatePartySize(req.PartySize); err != nil {
			return nil, nil, validationf("%v", err)
		}
	}
	if req.DurationMinutes < 0 {
		return nil, nil, validationf("estimated_duration_minutes must not be negative")
	}

	if replay, err := s.replay(ctx, req.IdempotencyKey); replay != nil || err != nil {
		return replay, nil, err
	}

	var (
		out *SeatResult
		evs []events.Event
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		svc := &domain.ServiceRecord{
			Source:          req.Source,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			Phone:           strings.TrimSpace(req.Phone),
			PartySize:       req.PartySize,
			SpecialRequests: strings.TrimSpace(req.SpecialRequests),
			SeatedAt:        now.UTC(),
			Status:          domain.ServiceActive,
		}

		var (
			res   *domain.Reservation
			entry *domain.WaitlistEntry
			err   error
		)
		switch req.Source {
		case domain.SourceReservation:
			res, err = repo.GetReservation(ctx, tx, req.ReservationID)
			if err != nil {
				return translate(err, "reservation "+req.ReservationID)
			}
			if !res.Status.Open() || res.CheckedIn() {
				return conflictf("reservation %s is %s", res.Code, res.Status.Stored())
			}
			svc.ReservationID = &res.ID
			fillParty(svc, res.CustomerName, res.Phone, res.PartySize, res.SpecialRequests)
		case domain.SourceWaitlist:
			entry, err = repo.GetWaitlistEntry(ctx, tx, req.WaitlistID)
			if err != nil {
				return translate(err, "waitlist entry "+req.WaitlistID)
			}
			if !entry.Status.Active() {
				return conflictf("waitlist entry %s is %s", entry.Code, entry.Status.Stored())
			}
			svc.WaitlistID = &entry.ID
			fillParty(svc, entry.CustomerName, entry.Phone, entry.PartySize, entry.SpecialRequests)
		}
		if svc.CustomerName == "" {
			svc.CustomerName = walkInName
		}
		if svc.PartySize == 0 {
			return validationf("party_size is required")
		}

		tables, skipped, err := s.resolveTables(ctx, tx, numbers, "seat-party")
		if err != nil {
			return err
		}
		heldFor := ""
		if res != nil {
			heldFor = res.ID
		}
		if err := checkSeatable(tables, heldFor); err != nil {
			return err
		}
		seats := 0
		for _, t := range tables {
			seats += t.Capacity
		}
		if seats < svc.PartySize {
			return validationf("tables seat %d, party of %d", seats, svc.PartySize)
		}

		dur := s.Settings.Duration.For(svc.PartySize)
		if req.DurationMinutes > 0 {
			dur = time.Duration(req.DurationMinutes) * time.Minute
		}
		svc.EstimatedDeparture = svc.SeatedAt.Add(dur)
		for _, t := range tables {
			svc.TableNumbers = append(svc.TableNumbers, t.Number)
		}
		svc.Code, err = uniqueCode(ctx, tx, &domain.ServiceRecord{}, func() string { return floor.ServiceCode(now) })
		if err != nil {
			return err
		}
		if err := repo.CreateServiceRecord(ctx, tx, svc); err != nil {
			return translate(err, "service record")
		}

		for i, t := range tables {
			err := repo.TransitionTable(ctx, tx, t.Number, []domain.TableStatus{t.Status}, domain.TableOccupied, &svc.ID, nil)
			if err != nil {
				if errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrNotFound) {
					return &TableConflictError{
						Op:           "seat-party",
						Blocked:      []int{t.Number},
						RolledBack:   svc.TableNumbers[:i],
						NotAttempted: svc.TableNumbers[i+1:],
						Detail:       "table changed while seating",
					}
				}
				return translate(err, "table")
			}
			evs = append(evs, events.Event{
				Type:           events.TableStatusChanged,
				TableNumber:    t.Number,
				Status:         domain.TableOccupied.Stored(),
				PreviousStatus: t.Status.Stored(),
				ServiceID:      svc.Code,
			})
			tables[i].Status, tables[i].CurrentServiceID, tables[i].HeldForReservationID = domain.TableOccupied, &svc.ID, nil
		}

		switch {
		case res != nil:
			err = repo.UpdateReservation(ctx, tx, res.ID, openReservation, map[string]any{
				"status":            domain.ReservationSeated,
				"checked_in_at":     now.UTC(),
				"table_numbers":     svc.TableNumbers,
				"service_record_id": svc.ID,
			})
			if err != nil {
				return translate(err, "reservation")
			}
		case entry != nil:
			err = repo.UpdateWaitlistEntry(ctx, tx, entry.ID, activeWaitlist, map[string]any{
				"status":    domain.WaitlistSeated,
				"seated_at": now.UTC(),
			})
			if err != nil {
				return translate(err, "waitlist entry")
			}
		}

		if req.IdempotencyKey != "" {
			_, err := repo.CreateIdempotency(ctx, tx, seatPartyScope, req.IdempotencyKey, svc.ID, http.StatusOK, s.Settings.IdempotencyTTL, now.UTC())
			if err != nil {
				return translate(err, "idempotency key")
			}
		}

		ev := events.Event{
			Type:         events.PartySeated,
			ServiceID:    svc.Code,
			PartySize:    svc.PartySize,
			TableNumbers: svc.TableNumbers,
			Source:       svc.Source,
		}
		if res != nil {
			ev.ReservationID = res.Code
		}
		if entry != nil {
			ev.WaitlistID = entry.Code
		}
		evs = append(evs, ev)

		out = &SeatResult{
			Service:       svc,
			Tables:        tables,
			SkippedTables: skipped,
			Partial:       len(skipped) > 0,
			Message:       fmt.Sprintf("Party of %d seated at table(s) %s", svc.PartySize, joinInts(svc.TableNumbers)),
		}
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, "seat party")
	}
	return out, evs, nil
}

func fillParty(svc *domain.ServiceRecord, name, phone string, size int, requests string) {
	if svc.CustomerName == "" {
		svc.CustomerName = name
	}
	if svc.Phone == "" {
		svc.Phone = phone
	}
	if svc.PartySize == 0 {
		svc.PartySize = size
	}
	if svc.SpecialRequests == "" {
		svc.SpecialRequests = requests
	}
}

// replay returns the original result of a seat-party already done under key.
func (s *SeatingService) replay(ctx context.Context, key string) (*SeatResult, error) {
	if strings.TrimSpace(key) == "" {
		return nil, nil
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, seatPartyScope, key, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "idempotency key")
	}
	svc, err := repo.GetServiceRecord(ctx, s.DB, rec.ResourceID)
	if err != nil {
		return nil, translate(err, "service record")
	}
	tables, err := repo.GetTablesByNumbers(ctx, s.DB, svc.TableNumbers)
	if err != nil {
		return nil, translate(err, "tables")
	}
	return &SeatResult{
		Service:  svc,
		Tables:   tables,
		Replayed: true,
		Message:  fmt.Sprintf("Party of %d seated at table(s) %s", svc.PartySize, joinInts(svc.TableNumbers)),
	}, nil
}

// resolveTables maps table numbers to active tables. Under the strict policy
// an unknown number is NotFound; under best-effort it is logged and skipped.
func (s *SeatingService) resolveTables(ctx context.Context, tx *gorm.DB, numbers []int, op string) ([]domain.Table, []int, error) {
	found, err := repo.GetTablesByNumbers(ctx, tx, numbers)
	if err != nil {
		return nil, nil, translate(err, "tables")
	}
	byNumber := make(map[int]domain.Table, len(found))
	for _, t := range found {
		if t.IsActive {
			byNumber[t.Number] = t
		}
	}
	var (
		tables  []domain.Table
		skipped []int
	)
	for _, n := range numbers {
		t, ok := byNumber[n]
		if ok {
			tables = append(tables, t)
			continue
		}
		if s.policy() == PolicyStrict {
			return nil, nil, notFoundf("table %d not found", n)
		}
		logger(ctx).Warn().Int("table", n).Str("op", op).Msg("unknown table skipped")
		skipped = append(skipped, n)
	}
	if len(tables) == 0 {
		return nil, nil, notFoundf("none of tables %s exist", joinInts(numbers))
	}
	return tables, skipped, nil
}

// checkSeatable reports every table a party cannot sit at.
func checkSeatable(tables []domain.Table, heldFor string) error {
	var (
		blocked []int
		detail  string
	)
	for _, t := range tables {
		ok := t.Status == domain.TableAvailable ||
			(t.Status == domain.TableReserved && heldFor != "" &&
				t.HeldForReservationID != nil && *t.HeldForReservationID == heldFor)
		if ok {
			continue
		}
		blocked = append(blocked, t.Number)
		if detail == "" {
			if t.Status == domain.TableReserved {
				detail = fmt.Sprintf("table %d is held for another reservation", t.Number)
			} else {
				detail = fmt.Sprintf("table %d is %s", t.Number, t.Status.Stored())
			}
		}
	}
	if len(blocked) == 0 {
		return nil
	}
	var rest []int
	for _, t := range tables {
		if !containsInt(blocked, t.Number) {
			rest = append(rest, t.Number)
		}
	}
	return &TableConflictError{Op: "seat-party", Blocked: blocked, NotAttempted: rest, Detail: detail}
}

func containsInt(ns []int, n int) bool {
	for _, x := range ns {
		if x == n {
			return true
		}
	}
	return false
}

// CompleteService ends a party's stay and sends every table it used to
// cleaning. Tables never go straight back to available.
func (s *SeatingService) CompleteService(ctx context.Context, ref string) (*CompleteResult, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "CompleteService", trace.WithAttributes(attribute.String("service.ref", ref)))
	defer span.End()

	start := time.Now()
	res, evs, err := s.completeService(ctx, ref)
	s.observe("complete-service", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	s.refreshGauges(ctx)
	return res, nil
}

func (s *SeatingService) completeService(ctx context.Context, ref string) (*CompleteResult, []events.Event, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, nil, validationf("service_id is required")
	}
	var (
		out *CompleteResult
		evs []events.Event
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc, err := repo.GetServiceRecord(ctx, tx, ref)
		if err != nil {
			return translate(err, "service record "+ref)
		}
		if svc.Status != domain.ServiceActive {
			return conflictf("service %s is already %s", svc.Code, svc.Status.Stored())
		}
		now := s.now().UTC()
		if err := repo.CompleteServiceRecord(ctx, tx, svc.ID, now); err != nil {
			return translate(err, "service record")
		}
		svc.Status, svc.DepartedAt = domain.ServiceCompleted, &now

		found, err := repo.GetTablesByNumbers(ctx, tx, svc.TableNumbers)
		if err != nil {
			return translate(err, "tables")
		}
		byNumber := make(map[int]domain.Table, len(found))
		for _, t := range found {
			byNumber[t.Number] = t
		}

		var (
			tables  []domain.Table
			skipped []int
		)
		for i, n := range svc.TableNumbers {
			t, ok := byNumber[n]
			mine := ok && t.IsActive && t.Status == domain.TableOccupied &&
				t.CurrentServiceID != nil && *t.CurrentServiceID == svc.ID
			if !mine {
				if s.policy() == PolicyStrict {
					detail := fmt.Sprintf("table %d is not occupied by %s", n, svc.Code)
					if !ok {
						detail = fmt.Sprintf("table %d not found", n)
					}
					return &TableConflictError{
						Op:           "complete-service",
						Blocked:      []int{n},
						RolledBack:   tableNumbers(tables),
						NotAttempted: svc.TableNumbers[i+1:],
						Detail:       detail,
					}
				}
				logger(ctx).Warn().Int("table", n).Str("op", "complete-service").Str("service", svc.Code).Msg("table skipped")
				skipped = append(skipped, n)
				continue
			}
			err := repo.TransitionTable(ctx, tx, n, floor.AllowedFrom(domain.TableBeingCleaned), domain.TableBeingCleaned, nil, nil)
			if err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return &TableConflictError{Op: "complete-service", Blocked: []int{n}, RolledBack: tableNumbers(tables), NotAttempted: svc.TableNumbers[i+1:]}
				}
				return translate(err, "table")
			}
			t.Status, t.CurrentServiceID = domain.TableBeingCleaned, nil
			tables = append(tables, t)
			evs = append(evs, events.Event{
				Type:           events.TableStatusChanged,
				TableNumber:    n,
				Status:         domain.TableBeingCleaned.Stored(),
				PreviousStatus: domain.TableOccupied.Stored(),
				ServiceID:      svc.Code,
			})
		}

		if svc.ReservationID != nil {
			err := repo.UpdateReservation(ctx, tx, *svc.ReservationID, []domain.ReservationStatus{domain.ReservationSeated},
				map[string]any{"status": domain.ReservationCompleted})
			if err != nil && !errors.Is(err, repo.ErrConflict) && !errors.Is(err, repo.ErrNotFound) {
				return translate(err, "reservation")
			}
		}

		evs = append(evs, events.Event{
			Type:         events.ServiceCompleted,
			ServiceID:    svc.Code,
			PartySize:    svc.PartySize,
			TableNumbers: tableNumbers(tables),
			Source:       svc.Source,
		})
		out = &CompleteResult{
			Service:       svc,
			Tables:        tables,
			SkippedTables: skipped,
			Partial:       len(skipped) > 0,
			Message:       fmt.Sprintf("Service %s completed; table(s) %s need cleaning", svc.Code, joinInts(tableNumbers(tables))),
		}
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, "complete service")
	}
	return out, evs, nil
}

func tableNumbers(ts []domain.Table) []int {
	out := make([]int, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Number)
	}
	return out
}

// MarkTableClean returns a cleaned table to the free pool. Cleaning an
// available table succeeds without a write.
func (s *SeatingService) MarkTableClean(ctx context.Context, number int) (*CleanResult, error) {
	tr := otel.Tracer("services/SeatingService")
	ctx, span := tr.Start(ctx, "MarkTableClean", trace.WithAttributes(attribute.Int("table.number", number)))
	defer span.End()

	start := time.Now()
	res, changed, err := s.markTableClean(ctx, number)
	s.observe("mark-table-clean", start, err)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.Event{
			Type:           events.TableStatusChanged,
			TableNumber:    number,
			Status:         domain.TableAvailable.Stored(),
			PreviousStatus: domain.TableBeingCleaned.Stored(),
		})
		s.refreshGauges(ctx)
	}
	return res, nil
}

func (s *SeatingService) markTableClean(ctx context.Context, number int) (*CleanResult, bool, error) {
	if number <= 0 {
		return nil, false, validationf("table_number is required")
	}
	t, err := readOnce(ctx, "get-table", func() (*domain.Table, error) {
		return repo.GetTableByNumber(ctx, s.DB, number)
	})
	if err != nil {
		return nil, false, translate(err, fmt.Sprintf("table %d", number))
	}
	if !t.IsActive {
		return nil, false, notFoundf("table %d not found", number)
	}
	switch t.Status {
	case domain.TableAvailable:
		return &CleanResult{Table: t, AlreadyClean: true, Message: fmt.Sprintf("Table %d is already clean", number)}, false, nil
	case domain.TableBeingCleaned:
	default:
		return nil, false, conflictf("table %d is %s, not being cleaned", number, t.Status.Stored())
	}

	err = repo.TransitionTable(ctx, s.DB, number, []domain.TableStatus{domain.TableBeingCleaned}, domain.TableAvailable, nil, nil)
	if errors.Is(err, repo.ErrConflict) {
		// Someone else finished first; report the fresh state.
		cur, gerr := repo.GetTableByNumber(ctx, s.DB, number)
		if gerr == nil && cur.Status == domain.TableAvailable {
			return &CleanResult{Table: cur, AlreadyClean: true, Message: fmt.Sprintf("Table %d is already clean", number)}, false, nil
		}
		return nil, false, conflictf("table %d changed while cleaning", number)
	}
	if err != nil {
		return nil, false, translate(err, "table")
	}
	t.Status, t.CurrentServiceID, t.HeldForReservationID = domain.TableAvailable, nil, nil
	t.Version++
	return &CleanResult{Table: t, Message: fmt.Sprintf("Table %d is ready", number)}, true, nil
}

// ListTables returns the floor ordered by number.
func (s *SeatingService) ListTables(ctx context.Context, includeInactive bool) ([]domain.Table, error) {
	tables, err := readOnce(ctx, "list-tables", func() ([]domain.Table, error) {
		return repo.ListTables(ctx, s.DB, repo.TableFilter{IncludeInactive: includeInactive})
	})
	if err != nil {
		return nil, translate(err, "tables")
	}
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Number < tables[j].Number })
	if tables == nil {
		tables = []domain.Table{}
	}
	return tables, nil
}

// FloorVersion stamps the current floor for conditional responses.
func (s *SeatingService) FloorVersion(ctx context.Context) (repo.FloorStamp, error) {
	st, err := readOnce(ctx, "floor-stats", func() (repo.FloorStamp, error) {
		return repo.FloorStats(ctx, s.DB)
	})
	return st, translate(err, "floor")
}

func (s *SeatingService) refreshGauges(ctx context.Context) {
	tables, err := repo.ListTables(ctx, s.DB, repo.TableFilter{})
	if err != nil {
		return
	}
	c := floor.CountTables(tables)
	m := s.metrics()
	m.SetFloorGauge(domain.TableAvailable.Stored(), c.Available)
	m.SetFloorGauge(domain.TableOccupied.Stored(), c.Occupied)
	m.SetFloorGauge(domain.TableBeingCleaned.Stored(), c.BeingCleaned)
	m.SetFloorGauge(domain.TableReserved.Stored(), c.Reserved)
}

// PurgeIdempotencyKeys drops expired seat-party replay records.
func (s *SeatingService) PurgeIdempotencyKeys(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.DB, s.now().UTC())
	return n, translate(err, "idempotency keys")
}
