package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/http/middleware"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
)

// ---------- stub services ----------

type stubFloor struct {
	dashboard func() (*services.Dashboard, error)
	checkIn   func(services.LookupQuery) (*services.CheckInResult, error)
	walkIn    func(services.WalkInRequest) (*services.WalkInResult, error)
	seat      func(services.SeatRequest) (*services.SeatResult, error)
	complete  func(string) (*services.CompleteResult, error)
	clean     func(int) (*services.CleanResult, error)
	tables    func(bool) ([]domain.Table, error)
	stamp     repo.FloorStamp
	stampErr  error
}

func (s *stubFloor) Dashboard(context.Context) (*services.Dashboard, error) { return s.dashboard() }
func (s *stubFloor) CheckIn(_ context.Context, q services.LookupQuery) (*services.CheckInResult, error) {
	return s.checkIn(q)
}
func (s *stubFloor) CheckWalkIn(_ context.Context, r services.WalkInRequest) (*services.WalkInResult, error) {
	return s.walkIn(r)
}
func (s *stubFloor) SeatParty(_ context.Context, r services.SeatRequest) (*services.SeatResult, error) {
	return s.seat(r)
}
func (s *stubFloor) CompleteService(_ context.Context, ref string) (*services.CompleteResult, error) {
	return s.complete(ref)
}
func (s *stubFloor) MarkTableClean(_ context.Context, n int) (*services.CleanResult, error) {
	return s.clean(n)
}
func (s *stubFloor) ListTables(_ context.Context, all bool) ([]domain.Table, error) {
	return s.tables(all)
}
func (s *stubFloor) FloorVersion(context.Context) (repo.FloorStamp, error) {
	return s.stamp, s.stampErr
}

type stubReservations struct {
	create func(services.CreateReservationRequest) (*services.ReservationResult, error)
	lookup func(services.LookupQuery) (*domain.Reservation, error)
	modify func(string, services.ModifyReservationRequest) (*services.ReservationResult, error)
	cancel func(string) (*domain.Reservation, error)
	hold   func(string, int) (*domain.Table, error)
}

func (s *stubReservations) Create(_ context.Context, r services.CreateReservationRequest) (*services.ReservationResult, error) {
	return s.create(r)
}
func (s *stubReservations) Lookup(_ context.Context, q services.LookupQuery) (*domain.Reservation, error) {
	return s.lookup(q)
}
func (s *stubReservations) Modify(_ context.Context, ref string, r services.ModifyReservationRequest) (*services.ReservationResult, error) {
	return s.modify(ref, r)
}
func (s *stubReservations) Cancel(_ context.Context, ref string) (*domain.Reservation, error) {
	return s.cancel(ref)
}
func (s *stubReservations) HoldTable(_ context.Context, ref string, n int) (*domain.Table, error) {
	return s.hold(ref, n)
}

type stubAvailability struct {
	check func(services.AvailabilityRequest) (*services.AvailabilityResult, error)
}

func (s *stubAvailability) Check(_ context.Context, r services.AvailabilityRequest) (*services.AvailabilityResult, error) {
	return s.check(r)
}

type stubWaitlist struct {
	add      func(services.AddWaitlistRequest) (*domain.WaitlistEntry, error)
	list     func([]domain.WaitlistStatus) ([]domain.WaitlistEntry, error)
	notify   func(string) (*domain.WaitlistEntry, error)
	update   func(string, domain.WaitlistStatus) (*domain.WaitlistEntry, error)
	remove   func(string) error
	estimate func(int) (*services.WaitEstimate, error)
}

func (s *stubWaitlist) Add(_ context.Context, r services.AddWaitlistRequest) (*domain.WaitlistEntry, error) {
	return s.add(r)
}
func (s *stubWaitlist) List(_ context.Context, st ...domain.WaitlistStatus) ([]domain.WaitlistEntry, error) {
	return s.list(st)
}
func (s *stubWaitlist) Notify(_ context.Context, ref string) (*domain.WaitlistEntry, error) {
	return s.notify(ref)
}
func (s *stubWaitlist) UpdateStatus(_ context.Context, ref string, to domain.WaitlistStatus) (*domain.WaitlistEntry, error) {
	return s.update(ref, to)
}
func (s *stubWaitlist) Remove(_ context.Context, ref string) error { return s.remove(ref) }
func (s *stubWaitlist) Estimate(_ context.Context, n int) (*services.WaitEstimate, error) {
	return s.estimate(n)
}

// ---------- router + request helpers ----------

// testRouter mounts the handlers the way the real router does, minus the
// cross-cutting middleware the handlers do not depend on.
func testRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{Scope: "seat-party"}, nil))

	r.GET("/host", h.HostAction)
	r.POST("/host", h.HostAction)
	r.GET("/host/dashboard", h.Dashboard)
	r.POST("/host/check-in", h.CheckIn)
	r.POST("/host/check-walk-in", h.CheckWalkIn)
	r.POST("/host/seat-party", h.SeatParty)
	r.POST("/host/complete-service", h.CompleteService)
	r.POST("/host/tables/:number/clean", h.MarkTableClean)
	r.GET("/tables", h.ListTables)

	r.POST("/availability", h.CheckAvailability)
	r.POST("/reservations", h.CreateReservation)
	r.GET("/reservations/lookup", h.LookupReservation)
	r.PATCH("/reservations/:id", h.ModifyReservation)
	r.POST("/reservations/:id/cancel", h.CancelReservation)
	r.POST("/reservations/:id/hold", h.HoldTable)

	r.GET("/waitlist", h.ListWaitlist)
	r.POST("/waitlist", h.AddWaitlist)
	r.GET("/waitlist/estimate", h.EstimateWait)
	r.POST("/waitlist/:id/notify", h.NotifyWaitlist)
	r.PATCH("/waitlist/:id", h.UpdateWaitlist)
	r.DELETE("/waitlist/:id", h.RemoveWaitlist)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, isRaw := body.(string); isRaw {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// data decodes the success envelope's data into dst.
func data(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, w.Body.String())
	}
	if !env.Success {
		t.Fatalf("expected success envelope: %s", w.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error: %v: %s", err, w.Body.String())
	}
	return resp.Code
}
