package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/floor"
	"github.com/tbourn/hoststand/internal/services"
)

func confirmed(code string) *domain.Reservation {
	return &domain.Reservation{
		ID: "r-1", Code: code, CustomerName: "Ann Lee", Phone: "5551234567",
		PartySize: 4, Date: "2025-07-04", Time: "19:00", Status: domain.ReservationConfirmed,
	}
}

func TestCheckAvailability(t *testing.T) {
	avail := &stubAvailability{check: func(req services.AvailabilityRequest) (*services.AvailabilityResult, error) {
		if req.PartySize > 20 {
			return nil, fmt.Errorf("%w: party size must be between 1 and 20", services.ErrValidation)
		}
		return &services.AvailabilityResult{
			Date:        req.Date,
			SlotResult:  floor.SlotResult{Time: req.Time, Available: false},
			Suggestions: []floor.SlotResult{{Time: "19:30", Available: true}},
		}, nil
	}}
	r := testRouter(New(nil, nil, avail, nil))

	w := do(t, r, http.MethodPost, "/availability", map[string]any{"date": "2025-07-04", "time": "19:00", "party_size": 4})
	var res services.AvailabilityResult
	data(t, w, &res)
	if res.Available || len(res.Suggestions) != 1 || res.Suggestions[0].Time != "19:30" {
		t.Fatalf("res=%+v", res)
	}

	w = do(t, r, http.MethodPost, "/availability", map[string]any{"party_size": 40})
	if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeValidation {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateReservation_Status(t *testing.T) {
	resv := &stubReservations{create: func(req services.CreateReservationRequest) (*services.ReservationResult, error) {
		if req.Time == "20:00" {
			return &services.ReservationResult{Booked: false, Message: "No availability at 20:00"}, nil
		}
		return &services.ReservationResult{Booked: true, Reservation: confirmed("RES-20250704-0001")}, nil
	}}
	r := testRouter(New(nil, resv, nil, nil))

	w := do(t, r, http.MethodPost, "/reservations", map[string]any{"time": "19:00"})
	var booked services.ReservationResult
	data(t, w, &booked)
	if w.Code != http.StatusOK || !booked.Booked {
		t.Fatalf("booked: code=%d res=%+v", w.Code, booked)
	}
	w = do(t, r, http.MethodPost, "/reservations", map[string]any{"time": "20:00"})
	var res services.ReservationResult
	data(t, w, &res)
	if w.Code != http.StatusOK || res.Booked {
		t.Fatalf("not booked: code=%d res=%+v", w.Code, res)
	}
}

func TestLookupReservation_Query(t *testing.T) {
	var got services.LookupQuery
	resv := &stubReservations{lookup: func(q services.LookupQuery) (*domain.Reservation, error) {
		got = q
		return confirmed("RES-20250704-0001"), nil
	}}
	r := testRouter(New(nil, resv, nil, nil))

	w := do(t, r, http.MethodGet, "/reservations/lookup?phone=555-123-4567&customer_name=ann", nil)
	if w.Code != http.StatusOK || got.Phone != "555-123-4567" || got.Name != "ann" {
		t.Fatalf("code=%d query=%+v", w.Code, got)
	}
}

func TestModifyCancelHold(t *testing.T) {
	var modified services.ModifyReservationRequest
	resv := &stubReservations{
		modify: func(ref string, req services.ModifyReservationRequest) (*services.ReservationResult, error) {
			modified = req
			return &services.ReservationResult{Booked: true, Reservation: confirmed(ref)}, nil
		},
		cancel: func(ref string) (*domain.Reservation, error) {
			return nil, fmt.Errorf("%w: reservation %s is Seated", services.ErrConflict, ref)
		},
		hold: func(ref string, n int) (*domain.Table, error) {
			id := "r-1"
			return &domain.Table{Number: n, Capacity: 4, Status: domain.TableReserved, HeldForReservationID: &id}, nil
		},
	}
	r := testRouter(New(nil, resv, nil, nil))

	w := do(t, r, http.MethodPatch, "/reservations/RES-20250704-0001", map[string]any{"party_size": 6})
	if w.Code != http.StatusOK || modified.PartySize == nil || *modified.PartySize != 6 || modified.Date != nil {
		t.Fatalf("modify: code=%d req=%+v", w.Code, modified)
	}

	if w := do(t, r, http.MethodPost, "/reservations/RES-20250704-0001/cancel", nil); w.Code != http.StatusConflict {
		t.Fatalf("cancel: code=%d", w.Code)
	}

	if w := do(t, r, http.MethodPost, "/reservations/RES-20250704-0001/hold", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("hold without table: code=%d", w.Code)
	}
	w = do(t, r, http.MethodPost, "/reservations/RES-20250704-0001/hold", map[string]any{"table_number": 7})
	var tbl domain.Table
	data(t, w, &tbl)
	if tbl.Number != 7 || tbl.Status != domain.TableReserved {
		t.Fatalf("hold: %+v", tbl)
	}
}
