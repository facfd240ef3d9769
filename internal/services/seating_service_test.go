package services

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/events"
	"github.com/tbourn/hoststand/internal/repo"
)

func TestSeatThenComplete_TablesGoToCleaningNotAvailable(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 2)

	seat, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 4, TableNumbers: []int{1, 2}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if seat.Service.Source != domain.SourceWalkIn || seat.Service.CustomerName != walkInName {
		t.Fatalf("unexpected service: %+v", seat.Service)
	}
	if want := fixedNow.Add(90 * time.Minute); !seat.Service.EstimatedDeparture.Equal(want) {
		t.Fatalf("estimated departure = %v, want %v", seat.Service.EstimatedDeparture, want)
	}
	for _, n := range []int{1, 2} {
		tb := f.table(t, n)
		if tb.Status != domain.TableOccupied || tb.CurrentServiceID == nil || *tb.CurrentServiceID != seat.Service.ID {
			t.Fatalf("table %d after seating: %+v", n, tb)
		}
	}

	done, err := f.seating.CompleteService(f.ctx, seat.Service.Code)
	if err != nil {
		t.Fatalf("CompleteService: %v", err)
	}
	if done.Service.Status != domain.ServiceCompleted || done.Service.DepartedAt == nil || done.Partial {
		t.Fatalf("unexpected completion: %+v", done)
	}
	for _, n := range []int{1, 2} {
		tb := f.table(t, n)
		if tb.Status != domain.TableBeingCleaned || tb.CurrentServiceID != nil {
			t.Fatalf("table %d after completion: %+v", n, tb)
		}
	}

	if _, err := f.seating.CompleteService(f.ctx, seat.Service.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("second completion: expected ErrConflict, got %v", err)
	}

	// Being cleaned tables are not free.
	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: []int{1}}); !errors.Is(err, ErrConflict) {
		t.Fatalf("seating a table being cleaned: expected ErrConflict, got %v", err)
	}

	want := []string{
		events.TableStatusChanged, events.TableStatusChanged, events.PartySeated,
		events.TableStatusChanged, events.TableStatusChanged, events.ServiceCompleted,
	}
	if got := f.events.types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if f.metrics.gauges["Being Cleaned"] != 2 || f.metrics.gauges["Occupied"] != 0 {
		t.Fatalf("gauges = %v", f.metrics.gauges)
	}
}

func TestMarkTableClean(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 4, 4)

	seat, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 3, TableNumbers: []int{1}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if _, err := f.seating.MarkTableClean(f.ctx, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("cleaning an occupied table: expected ErrConflict, got %v", err)
	}
	if _, err := f.seating.CompleteService(f.ctx, seat.Service.ID); err != nil {
		t.Fatalf("CompleteService: %v", err)
	}

	res, err := f.seating.MarkTableClean(f.ctx, 1)
	if err != nil || res.AlreadyClean || res.Table.Status != domain.TableAvailable {
		t.Fatalf("first clean: res=%+v err=%v", res, err)
	}

	t.Run("idempotent on available table", func(t *testing.T) {
		before := f.table(t, 1).Version
		for i := 0; i < 2; i++ {
			res, err := f.seating.MarkTableClean(f.ctx, 1)
			if err != nil || !res.AlreadyClean {
				t.Fatalf("repeat clean %d: res=%+v err=%v", i, res, err)
			}
		}
		if after := f.table(t, 1).Version; after != before {
			t.Fatalf("no-op clean wrote the table: version %d -> %d", before, after)
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		if _, err := f.seating.MarkTableClean(f.ctx, 42); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := f.seating.MarkTableClean(f.ctx, 0); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestSeatParty_ConflictRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 4, 4, 4)

	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: []int{1}}); err != nil {
		t.Fatalf("seat first party: %v", err)
	}

	_, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 8, TableNumbers: []int{2, 1, 3}})
	var tce *TableConflictError
	if !errors.As(err, &tce) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected *TableConflictError, got %v", err)
	}
	if !reflect.DeepEqual(tce.Blocked, []int{1}) || !reflect.DeepEqual(tce.NotAttempted, []int{2, 3}) {
		t.Fatalf("conflict detail: %+v", tce)
	}
	for _, n := range []int{2, 3} {
		if tb := f.table(t, n); tb.Status != domain.TableAvailable || tb.CurrentServiceID != nil {
			t.Fatalf("table %d touched by failed seating: %+v", n, tb)
		}
	}
	active, err := repo.ListServiceRecords(f.ctx, f.db, domain.ServiceActive)
	if err != nil || len(active) != 1 {
		t.Fatalf("expected only the first service record, got %d (err=%v)", len(active), err)
	}
	if f.metrics.ops["seat-party"] != OutcomeConflict {
		t.Fatalf("outcome = %q", f.metrics.ops["seat-party"])
	}
}

func TestSeatParty_Validation(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 4)

	cases := []struct {
		name string
		req  SeatRequest
		want error
	}{
		{"no tables", SeatRequest{PartySize: 2}, ErrValidation},
		{"party too large for party rules", SeatRequest{PartySize: 21, TableNumbers: []int{1}}, ErrValidation},
		{"party exceeds seats", SeatRequest{PartySize: 6, TableNumbers: []int{1}}, ErrValidation},
		{"missing party size", SeatRequest{TableNumbers: []int{1}}, ErrValidation},
		{"unknown source", SeatRequest{Source: "drive-thru", PartySize: 2, TableNumbers: []int{1}}, ErrValidation},
		{"reservation source without id", SeatRequest{Source: "reservation", PartySize: 2, TableNumbers: []int{1}}, ErrValidation},
		{"unknown reservation", SeatRequest{ReservationID: "RES-nope", TableNumbers: []int{1}}, ErrNotFound},
		{"unknown table strict", SeatRequest{PartySize: 2, TableNumbers: []int{1, 99}}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.seating.SeatParty(f.ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if tb := f.table(t, 1); tb.Status != domain.TableAvailable {
		t.Fatalf("failed requests changed table 1: %+v", tb)
	}
}

func TestSeatParty_BestEffortSkipsUnknownTables(t *testing.T) {
	f := newFixture(t, func(s *FloorSettings) { s.Policy = PolicyBestEffort })
	f.tables(t, 4)

	res, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 4, TableNumbers: []int{99, 1}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if !res.Partial || !reflect.DeepEqual(res.SkippedTables, []int{99}) || !reflect.DeepEqual(res.Service.TableNumbers, []int{1}) {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: []int{98, 99}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("all tables unknown: expected ErrNotFound, got %v", err)
	}
}

func TestSeatParty_FromReservation(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 4)
	r := f.reservation(t, "Alice Moreno", "555-123-4567", today, "18:00", 4)

	res, err := f.seating.SeatParty(f.ctx, SeatRequest{ReservationID: r.Code, TableNumbers: []int{2}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if res.Service.Source != domain.SourceReservation || res.Service.PartySize != 4 || res.Service.CustomerName != "Alice Moreno" {
		t.Fatalf("service not filled from reservation: %+v", res.Service)
	}

	got, err := repo.GetReservation(f.ctx, f.db, r.ID)
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if got.Status != domain.ReservationSeated || !got.CheckedIn() ||
		!reflect.DeepEqual(got.TableNumbers, []int{2}) || got.ServiceRecordID == nil || *got.ServiceRecordID != res.Service.ID {
		t.Fatalf("reservation after seating: %+v", got)
	}

	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{ReservationID: r.Code, TableNumbers: []int{1}, PartySize: 2}); !errors.Is(err, ErrConflict) {
		t.Fatalf("seating twice: expected ErrConflict, got %v", err)
	}

	if _, err := f.seating.CompleteService(f.ctx, res.Service.ID); err != nil {
		t.Fatalf("CompleteService: %v", err)
	}
	if got, _ := repo.GetReservation(f.ctx, f.db, r.ID); got.Status != domain.ReservationCompleted {
		t.Fatalf("reservation after completion: %v", got.Status)
	}
}

func TestSeatParty_HeldTableOnlyForItsReservation(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 4)
	r := f.reservation(t, "Bo Chen", "5550001111", today, "18:30", 4)

	if _, err := f.reserve.HoldTable(f.ctx, r.Code, 1); err != nil {
		t.Fatalf("HoldTable: %v", err)
	}
	if tb := f.table(t, 1); tb.Status != domain.TableReserved {
		t.Fatalf("held table: %+v", tb)
	}

	_, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: []int{1}})
	var tce *TableConflictError
	if !errors.As(err, &tce) {
		t.Fatalf("walk-in on held table: expected *TableConflictError, got %v", err)
	}

	check, err := f.seating.CheckIn(f.ctx, LookupQuery{ReservationID: r.Code})
	if err != nil || check.Recommendation == nil || check.Recommendation.TableNumbers[0] != 1 {
		t.Fatalf("check-in should offer the held table: %+v err=%v", check, err)
	}
	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{ReservationID: r.ID, TableNumbers: []int{1}}); err != nil {
		t.Fatalf("seating the reservation at its held table: %v", err)
	}
	if tb := f.table(t, 1); tb.Status != domain.TableOccupied || tb.HeldForReservationID != nil {
		t.Fatalf("table after seating: %+v", tb)
	}
}

func TestSeatParty_FromWaitlist(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 6)
	e, err := f.waitlist.Add(f.ctx, AddWaitlistRequest{CustomerName: "Dana Ruiz", Phone: "555 222 3333", PartySize: 5})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := f.seating.SeatParty(f.ctx, SeatRequest{WaitlistID: e.Code, TableNumbers: []int{1}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if res.Service.Source != domain.SourceWaitlist || res.Service.PartySize != 5 {
		t.Fatalf("service: %+v", res.Service)
	}
	got, err := repo.GetWaitlistEntry(f.ctx, f.db, e.ID)
	if err != nil || got.Status != domain.WaitlistSeated || got.SeatedAt == nil {
		t.Fatalf("entry after seating: %+v err=%v", got, err)
	}
}

func TestSeatParty_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 4, 4)

	req := SeatRequest{PartySize: 2, TableNumbers: []int{1}, IdempotencyKey: "seat-abc"}
	first, err := f.seating.SeatParty(f.ctx, req)
	if err != nil || first.Replayed {
		t.Fatalf("first seating: %+v err=%v", first, err)
	}
	second, err := f.seating.SeatParty(f.ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.Replayed || second.Service.ID != first.Service.ID {
		t.Fatalf("replay returned a different record: %+v", second)
	}
	all, _ := repo.ListServiceRecords(f.ctx, f.db)
	if len(all) != 1 {
		t.Fatalf("replay created a second record: %d", len(all))
	}

	// A different key is a new request and conflicts on the occupied table.
	req.IdempotencyKey = "seat-def"
	if _, err := f.seating.SeatParty(f.ctx, req); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if n, err := f.seating.PurgeIdempotencyKeys(f.ctx); err != nil || n != 0 {
		t.Fatalf("purge before expiry: n=%d err=%v", n, err)
	}
}

func TestCompleteService_BestEffortSkipsForeignTables(t *testing.T) {
	f := newFixture(t, func(s *FloorSettings) { s.Policy = PolicyBestEffort })
	f.tables(t, 2, 2)

	res, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 4, TableNumbers: []int{1, 2}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	// Table 2 is taken off the floor while the party eats.
	if err := repo.SetTableActive(f.ctx, f.db, 2, false); err != nil {
		t.Fatalf("SetTableActive: %v", err)
	}
	done, err := f.seating.CompleteService(f.ctx, res.Service.ID)
	if err != nil {
		t.Fatalf("CompleteService: %v", err)
	}
	if !done.Partial || !reflect.DeepEqual(done.SkippedTables, []int{2}) || len(done.Tables) != 1 {
		t.Fatalf("unexpected completion: %+v", done)
	}
	if tb := f.table(t, 1); tb.Status != domain.TableBeingCleaned {
		t.Fatalf("table 1: %+v", tb)
	}
}

func TestCompleteService_StrictReportsForeignTable(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 2)

	res, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 4, TableNumbers: []int{1, 2}})
	if err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if err := repo.SetTableActive(f.ctx, f.db, 2, false); err != nil {
		t.Fatalf("SetTableActive: %v", err)
	}
	_, err = f.seating.CompleteService(f.ctx, res.Service.ID)
	var tce *TableConflictError
	if !errors.As(err, &tce) || !reflect.DeepEqual(tce.Blocked, []int{2}) || !reflect.DeepEqual(tce.RolledBack, []int{1}) {
		t.Fatalf("expected conflict on table 2, got %v", err)
	}
	if tb := f.table(t, 1); tb.Status != domain.TableOccupied {
		t.Fatalf("rollback left table 1 as %v", tb.Status)
	}
	if sr, _ := repo.GetServiceRecord(f.ctx, f.db, res.Service.ID); sr.Status != domain.ServiceActive {
		t.Fatalf("rollback left service %v", sr.Status)
	}
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 4, 6)
	r := f.reservation(t, "Alice Moreno", "(555) 123-4567", today, "18:00", 4)

	res, err := f.seating.CheckIn(f.ctx, LookupQuery{Phone: "555.123.4567"})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if res.Reservation.ID != r.ID || res.NoSuitableTable {
		t.Fatalf("unexpected result: %+v", res)
	}
	top := res.Recommendation
	if top == nil || !reflect.DeepEqual(top.TableNumbers, []int{2}) || top.Score != 100 || top.Quality != "perfect" {
		t.Fatalf("top = %+v", top)
	}
	if len(res.Alternatives) != 2 || res.Message == "" {
		t.Fatalf("alternatives = %+v message=%q", res.Alternatives, res.Message)
	}
	if tb := f.table(t, 2); tb.Status != domain.TableAvailable {
		t.Fatalf("check-in must not write: %+v", tb)
	}

	t.Run("no suitable table", func(t *testing.T) {
		big := f.reservation(t, "Big Group", "5559998888", today, "18:00", 20)
		res, err := f.seating.CheckIn(f.ctx, LookupQuery{ReservationID: big.Code})
		if err != nil || !res.NoSuitableTable || res.Message != noSuitableTableMsg || res.Recommendation != nil {
			t.Fatalf("res=%+v err=%v", res, err)
		}
	})

	t.Run("closed reservation", func(t *testing.T) {
		c := f.reservation(t, "Gone Away", "5557776666", today, "18:00", 2)
		if _, err := f.reserve.Cancel(f.ctx, c.Code); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if _, err := f.seating.CheckIn(f.ctx, LookupQuery{ReservationID: c.Code}); !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		if _, err := f.seating.CheckIn(f.ctx, LookupQuery{}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestCheckWalkIn(t *testing.T) {
	f := newFixture(t)
	if _, err := repo.CreateTable(f.ctx, f.db, 1, 2, "Window"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateTable(f.ctx, f.db, 2, 4, "Patio"); err != nil {
		t.Fatal(err)
	}

	t.Run("preferred location", func(t *testing.T) {
		res, err := f.seating.CheckWalkIn(f.ctx, WalkInRequest{PartySize: 2, PreferredLocation: "patio"})
		if err != nil || res.Recommendation == nil || res.Recommendation.TableNumbers[0] != 2 {
			t.Fatalf("res=%+v err=%v", res, err)
		}
	})

	t.Run("unknown location falls back to all tables", func(t *testing.T) {
		res, err := f.seating.CheckWalkIn(f.ctx, WalkInRequest{PartySize: 2, PreferredLocation: "rooftop"})
		if err != nil || res.Recommendation == nil || res.Recommendation.TableNumbers[0] != 1 {
			t.Fatalf("res=%+v err=%v", res, err)
		}
	})

	t.Run("no table quotes a wait", func(t *testing.T) {
		res, err := f.seating.CheckWalkIn(f.ctx, WalkInRequest{PartySize: 8})
		if err != nil || !res.NoSuitableTable || res.Waitlisted != nil || res.EstimatedWait != 10 {
			t.Fatalf("res=%+v err=%v", res, err)
		}
	})

	t.Run("no table with contact joins the waitlist", func(t *testing.T) {
		res, err := f.seating.CheckWalkIn(f.ctx, WalkInRequest{PartySize: 8, CustomerName: "Eve Stone", Phone: "5551112222"})
		if err != nil || res.Waitlisted == nil {
			t.Fatalf("res=%+v err=%v", res, err)
		}
		if res.Waitlisted.Priority != 1 || res.EstimatedWait != 10 || res.Waitlisted.Status != domain.WaitlistWaiting {
			t.Fatalf("entry = %+v", res.Waitlisted)
		}
	})

	t.Run("invalid party size", func(t *testing.T) {
		if _, err := f.seating.CheckWalkIn(f.ctx, WalkInRequest{PartySize: 0}); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 4, 4, 10)
	f.reservation(t, "Later Party", "5550000001", today, "19:00", 2)
	f.reservation(t, "Long Gone", "5550000002", today, "17:00", 2)
	f.reservation(t, "Tomorrow", "5550000003", "2025-07-05", "19:00", 2)
	if _, err := f.waitlist.Add(f.ctx, AddWaitlistRequest{CustomerName: "Queue One", Phone: "5550000004", PartySize: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 4, TableNumbers: []int{2}}); err != nil {
		t.Fatal(err)
	}

	f.seating.Now = func() time.Time { return fixedNow.Add(30 * time.Minute) }
	d, err := f.seating.Dashboard(f.ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if len(d.Tables) != 4 || len(d.Active) != 1 {
		t.Fatalf("tables=%d active=%d", len(d.Tables), len(d.Active))
	}
	p := d.Active[0]
	if p.TimeElapsed != 30 || p.TimeRemaining != 60 || p.IsOverdue {
		t.Fatalf("timing = %+v", p)
	}
	if len(d.Upcoming) != 1 || d.Upcoming[0].CustomerName != "Later Party" {
		t.Fatalf("upcoming = %+v", d.Upcoming)
	}
	s := d.Summary
	if s.Tables != 4 || s.Capacity != 20 || s.Occupied != 1 || s.Available != 3 ||
		s.OccupiedSeats != 4 || s.OccupancyPercent != 20 || s.WaitingParties != 1 || s.UpcomingReservations != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if f.metrics.waitlist != 1 || f.metrics.gauges["Occupied"] != 1 {
		t.Fatalf("metrics gauges=%v waitlist=%d", f.metrics.gauges, f.metrics.waitlist)
	}

	t.Run("overdue party", func(t *testing.T) {
		f.seating.Now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
		d, err := f.seating.Dashboard(f.ctx)
		if err != nil {
			t.Fatal(err)
		}
		if p := d.Active[0]; !p.IsOverdue || p.TimeRemaining != 0 || p.TimeElapsed != 120 {
			t.Fatalf("timing = %+v", p)
		}
	})
}

func TestEventPublishFailureDoesNotFailSeating(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2)
	f.events.fail = errors.New("broker down")

	if _, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: []int{1}}); err != nil {
		t.Fatalf("SeatParty: %v", err)
	}
	if len(f.events.types()) != 2 {
		t.Fatalf("events attempted = %v", f.events.types())
	}
}

// Seating every table then completing every service must leave the occupied
// set empty and each occupied table pointing at exactly one active record.
func TestOccupiedTablesMatchActiveServices(t *testing.T) {
	f := newFixture(t)
	f.tables(t, 2, 2, 4, 4, 6)

	var services []string
	for _, set := range [][]int{{1, 2}, {3}, {5}} {
		res, err := f.seating.SeatParty(f.ctx, SeatRequest{PartySize: 2, TableNumbers: set})
		if err != nil {
			t.Fatal(err)
		}
		services = append(services, res.Service.ID)
	}

	check := func() {
		t.Helper()
		tables, _ := repo.ListTables(f.ctx, f.db, repo.TableFilter{})
		active, _ := repo.ListServiceRecords(f.ctx, f.db, domain.ServiceActive)
		owners := map[int]int{}
		for _, sr := range active {
			for _, n := range sr.TableNumbers {
				owners[n]++
			}
		}
		for _, tb := range tables {
			occupied := tb.Status == domain.TableOccupied
			if occupied != (owners[tb.Number] == 1) || owners[tb.Number] > 1 {
				t.Fatalf("table %d status %v owned by %d active records", tb.Number, tb.Status, owners[tb.Number])
			}
		}
	}
	check()
	for _, id := range services {
		if _, err := f.seating.CompleteService(f.ctx, id); err != nil {
			t.Fatal(err)
		}
		check()
	}
}
