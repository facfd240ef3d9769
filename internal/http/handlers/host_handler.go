// Host-stand HTTP handlers.
//
// These endpoints drive the floor:
//   - GET  /host/dashboard
//   - POST /host/check-in
//   - POST /host/check-walk-in
//   - POST /host/seat-party            (Idempotency-Key aware)
//   - POST /host/complete-service
//   - POST /host/tables/{number}/clean
//   - GET  /tables                     (ETag support)
//   - GET|POST /host?action=...        (single-endpoint dispatcher)
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hoststand/internal/http/middleware"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
	"github.com/tbourn/hoststand/internal/sysutil"
)

// HeaderReplayed is set to "true" when seat-party answers from a stored
// idempotency record.
const HeaderReplayed = "Idempotency-Replayed"

// CompleteServiceRequest finishes a party's service.
type CompleteServiceRequest struct {
	ServiceRecordID string `json:"service_record_id" example:"SVC-20250704-0042"`
}

// MarkCleanRequest is the dispatcher form of /host/tables/{number}/clean.
// table_id is accepted as an alias used by older host clients.
type MarkCleanRequest struct {
	TableNumber int `json:"table_number" example:"4"`
	TableID     int `json:"table_id,omitempty"`
}

func (r MarkCleanRequest) number() int {
	if r.TableNumber != 0 {
		return r.TableNumber
	}
	return r.TableID
}

var hostActions = map[string]func(*Handlers, *gin.Context){
	"dashboard":        (*Handlers).Dashboard,
	"check-in":         (*Handlers).CheckIn,
	"check-walk-in":    (*Handlers).CheckWalkIn,
	"seat-party":       (*Handlers).SeatParty,
	"complete-service": (*Handlers).CompleteService,
	"mark-table-clean": (*Handlers).markCleanFromBody,
}

// HostAction godoc
// @ID          hostAction
// @Summary     Host-stand action dispatcher
// @Description Runs one host action named by the action query parameter. dashboard accepts GET or POST; every other action requires POST.
// @Tags        Host
// @Accept      json
// @Produce     json
// @Param       action  query  string  true  "Action"  Enums(dashboard, check-in, check-walk-in, seat-party, complete-service, mark-table-clean)
// @Success     200  {object}  handlers.Envelope
// @Failure     400  {object}  handlers.ErrorResponse  "Unknown action or bad input"
// @Failure     405  {object}  handlers.ErrorResponse  "Action requires POST"
// @Failure     409  {object}  handlers.ErrorResponse  "Floor conflict"
// @Router      /host [get]
// @Router      /host [post]
func (h *Handlers) HostAction(c *gin.Context) {
	action := strings.ToLower(strings.TrimSpace(c.Query("action")))
	fn, found := hostActions[action]
	if !found {
		fail(c, http.StatusBadRequest, ErrCodeUnknownAction,
			"Invalid action. Use: dashboard, check-in, check-walk-in, seat-party, complete-service, or mark-table-clean")
		return
	}
	if action != "dashboard" && c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		fail(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, action+" requires POST")
		return
	}
	fn(h, c)
}

// Dashboard godoc
// @ID          dashboard
// @Summary     Floor snapshot
// @Description Tables, active parties with timing, upcoming reservations, the waitlist and summary counts. Supports a weak ETag that changes on every floor write and every minute.
// @Tags        Host
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.Envelope{data=services.Dashboard}
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /host/dashboard [get]
func (h *Handlers) Dashboard(c *gin.Context) {
	minute := time.Now().Unix() / 60
	if h.notModified(c, fmt.Sprintf("dash:%d", minute)) {
		return
	}
	d, err := h.floor.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}

// CheckIn godoc
// @ID          checkIn
// @Summary     Check in a reservation
// @Description Finds the reservation by id, phone or name and recommends tables. Nothing is written.
// @Tags        Host
// @Accept      json
// @Produce     json
// @Param       body  body  services.LookupQuery  true  "Reservation reference"
// @Success     200  {object}  handlers.Envelope{data=services.CheckInResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Reservation already seated, cancelled or no-show"
// @Router      /host/check-in [post]
func (h *Handlers) CheckIn(c *gin.Context) {
	var q services.LookupQuery
	if !bindJSON(c, &q) {
		return
	}
	res, err := h.floor.CheckIn(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// CheckWalkIn godoc
// @ID          checkWalkIn
// @Summary     Recommend tables for a walk-in
// @Description Recommends tables for a party at the door, optionally filtered by location. When nothing fits and name and phone are given, the party joins the waitlist.
// @Tags        Host
// @Accept      json
// @Produce     json
// @Param       body  body  services.WalkInRequest  true  "Walk-in party"
// @Success     200  {object}  handlers.Envelope{data=services.WalkInResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /host/check-walk-in [post]
func (h *Handlers) CheckWalkIn(c *gin.Context) {
	var req services.WalkInRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.floor.CheckWalkIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// SeatParty godoc
// @ID          seatParty
// @Summary     Seat a party
// @Description Creates a service record and occupies the tables in one transaction. A conflict on any table rolls everything back. A repeated Idempotency-Key returns the original result.
// @Tags        Host
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Makes retries safe"
// @Param       body  body  services.SeatRequest  true  "Party and tables"
// @Success     200  {object}  handlers.Envelope{data=services.SeatResult}
// @Header      200  {string}  Idempotency-Replayed  "true when answered from a stored key"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Blocked tables"
// @Router      /host/seat-party [post]
func (h *Handlers) SeatParty(c *gin.Context) {
	var req services.SeatRequest
	if !bindJSON(c, &req) {
		return
	}
	if key, found := middleware.GetIdempotencyKey(c); found {
		req.IdempotencyKey = key
	}
	res, err := h.floor.SeatParty(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Replayed {
		c.Header(HeaderReplayed, "true")
	}
	ok(c, http.StatusOK, res)
}

// CompleteService godoc
// @ID          completeService
// @Summary     Finish a party's service
// @Description Completes the service record and sends its tables to cleaning.
// @Tags        Host
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CompleteServiceRequest  true  "Service record"
// @Success     200  {object}  handlers.Envelope{data=services.CompleteResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Already completed"
// @Router      /host/complete-service [post]
func (h *Handlers) CompleteService(c *gin.Context) {
	var req CompleteServiceRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.ServiceRecordID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "service_record_id is required")
		return
	}
	res, err := h.floor.CompleteService(c.Request.Context(), req.ServiceRecordID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// MarkTableClean godoc
// @ID          markTableClean
// @Summary     Mark a table clean
// @Description Moves a table from Being Cleaned to Available. An already available table succeeds with already_clean=true.
// @Tags        Host
// @Produce     json
// @Param       number  path  int  true  "Table number"  minimum(1)
// @Success     200  {object}  handlers.Envelope{data=services.CleanResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Table occupied or reserved"
// @Router      /host/tables/{number}/clean [post]
func (h *Handlers) MarkTableClean(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table number must be a positive integer")
		return
	}
	h.markClean(c, n)
}

func (h *Handlers) markCleanFromBody(c *gin.Context) {
	var req MarkCleanRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.number() < 1 {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "table_number is required")
		return
	}
	h.markClean(c, req.number())
}

func (h *Handlers) markClean(c *gin.Context, n int) {
	res, err := h.floor.MarkTableClean(c.Request.Context(), n)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ListTables godoc
// @ID          listTables
// @Summary     List tables
// @Description Tables ordered by number. Supports a weak ETag via If-None-Match.
// @Tags        Tables
// @Produce     json
// @Param       include_inactive  query   bool    false  "Include retired tables"
// @Param       If-None-Match     header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.Envelope{data=[]domain.Table}
// @Success     304  {string}  string  "Not Modified"
// @Router      /tables [get]
func (h *Handlers) ListTables(c *gin.Context) {
	all := sysutil.IsTruthy(c.Query("include_inactive"))
	if h.notModified(c, fmt.Sprintf("tables:%t", all)) {
		return
	}
	ts, err := h.floor.ListTables(c.Request.Context(), all)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, ts)
}

// notModified sets a weak ETag built from the floor stamp and reports
// whether the client already has it. A stamp failure only skips the ETag.
func (h *Handlers) notModified(c *gin.Context, view string) bool {
	st, err := h.floor.FloorVersion(c.Request.Context())
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Msg("floor stamp unavailable")
		return false
	}
	etag := floorETag(view, st)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

func floorETag(view string, st repo.FloorStamp) string {
	var ts int64
	if st.LastUpdate != nil {
		ts = st.LastUpdate.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%d:%d:%d"`, view, st.Rows, st.Versions, ts)
}

// bindJSON decodes the body into dst. An empty body leaves dst zero, so the
// service reports which fields are missing.
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return false
	}
	return true
}
