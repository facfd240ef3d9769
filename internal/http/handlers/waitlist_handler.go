// Waitlist HTTP handlers.
//
//   - GET    /waitlist            (?status=waiting,notified)
//   - POST   /waitlist
//   - GET    /waitlist/estimate   (?party_size=4)
//   - POST   /waitlist/{id}/notify
//   - PATCH  /waitlist/{id}       (status: notified|cancelled|no_show)
//   - DELETE /waitlist/{id}
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/services"
)

// UpdateWaitlistRequest moves an entry to a new status.
type UpdateWaitlistRequest struct {
	Status string `json:"status" example:"cancelled"`
}

// ListWaitlist godoc
// @ID          listWaitlist
// @Summary     List the waitlist
// @Description Entries by priority. Without status, only waiting and notified parties are returned.
// @Tags        Waitlist
// @Produce     json
// @Param       status  query  string  false  "Comma-separated statuses"  example(waiting,notified)
// @Success     200  {object}  handlers.Envelope{data=[]domain.WaitlistEntry}
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /waitlist [get]
func (h *Handlers) ListWaitlist(c *gin.Context) {
	var statuses []domain.WaitlistStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		st, err := domain.ParseWaitlistStatus(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		statuses = append(statuses, st)
	}
	entries, err := h.waitlist.List(c.Request.Context(), statuses...)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// AddWaitlist godoc
// @ID          addWaitlist
// @Summary     Join the waitlist
// @Tags        Waitlist
// @Accept      json
// @Produce     json
// @Param       body  body  services.AddWaitlistRequest  true  "Party"
// @Success     200  {object}  handlers.Envelope{data=domain.WaitlistEntry}
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /waitlist [post]
func (h *Handlers) AddWaitlist(c *gin.Context) {
	var req services.AddWaitlistRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.waitlist.Add(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// EstimateWait godoc
// @ID          estimateWait
// @Summary     Quote a wait
// @Tags        Waitlist
// @Produce     json
// @Param       party_size  query  int  true  "Guests"  minimum(1) maximum(20)
// @Success     200  {object}  handlers.Envelope{data=services.WaitEstimate}
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /waitlist/estimate [get]
func (h *Handlers) EstimateWait(c *gin.Context) {
	n, err := strconv.Atoi(c.Query("party_size"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "party_size must be an integer")
		return
	}
	est, err := h.waitlist.Estimate(c.Request.Context(), n)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, est)
}

// NotifyWaitlist godoc
// @ID          notifyWaitlist
// @Summary     Tell a party their table is ready
// @Description Waiting becomes notified. Notifying twice returns the entry unchanged.
// @Tags        Waitlist
// @Produce     json
// @Param       id  path  string  true  "Waitlist id"
// @Success     200  {object}  handlers.Envelope{data=domain.WaitlistEntry}
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /waitlist/{id}/notify [post]
func (h *Handlers) NotifyWaitlist(c *gin.Context) {
	e, err := h.waitlist.Notify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// UpdateWaitlist godoc
// @ID          updateWaitlist
// @Summary     Change a waitlist entry's status
// @Description Accepts notified, cancelled or no_show. Seating goes through seat-party.
// @Tags        Waitlist
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Waitlist id"
// @Param       body  body  handlers.UpdateWaitlistRequest  true  "New status"
// @Success     200  {object}  handlers.Envelope{data=domain.WaitlistEntry}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /waitlist/{id} [patch]
func (h *Handlers) UpdateWaitlist(c *gin.Context) {
	var req UpdateWaitlistRequest
	if !bindJSON(c, &req) {
		return
	}
	st, err := domain.ParseWaitlistStatus(req.Status)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, fmt.Sprintf("status: %v", err))
		return
	}
	e, err := h.waitlist.UpdateStatus(c.Request.Context(), c.Param("id"), st)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

// RemoveWaitlist godoc
// @ID          removeWaitlist
// @Summary     Delete a waitlist entry
// @Tags        Waitlist
// @Param       id  path  string  true  "Waitlist id"
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /waitlist/{id} [delete]
func (h *Handlers) RemoveWaitlist(c *gin.Context) {
	if err := h.waitlist.Remove(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
