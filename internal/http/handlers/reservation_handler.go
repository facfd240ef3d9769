// Reservation and availability HTTP handlers.
//
//   - POST  /availability
//   - POST  /reservations
//   - GET   /reservations/lookup
//   - PATCH /reservations/{id}
//   - POST  /reservations/{id}/cancel
//   - POST  /reservations/{id}/hold
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hoststand/internal/services"
)

// HoldTableRequest names the table to hold for a reservation.
type HoldTableRequest struct {
	TableNumber int `json:"table_number" example:"7"`
}

// CheckAvailability godoc
// @ID          checkAvailability
// @Summary     Check a slot
// @Description Reports whether a party fits at a date and time and suggests nearby times when it does not.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Param       body  body  services.AvailabilityRequest  true  "Slot"
// @Success     200  {object}  handlers.Envelope{data=services.AvailabilityResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /availability [post]
func (h *Handlers) CheckAvailability(c *gin.Context) {
	var req services.AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.availability.Check(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// CreateReservation godoc
// @ID          createReservation
// @Summary     Book a table
// @Description Stores a confirmed reservation when the slot fits. An unavailable slot returns 200 with booked=false and suggested times.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Param       body  body  services.CreateReservationRequest  true  "Booking"
// @Success     200  {object}  handlers.Envelope{data=services.ReservationResult}  "Booked, or not booked with suggestions"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /reservations [post]
func (h *Handlers) CreateReservation(c *gin.Context) {
	var req services.CreateReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.reservations.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// LookupReservation godoc
// @ID          lookupReservation
// @Summary     Find a reservation
// @Description Looks up by reservation id, then phone, then customer name.
// @Tags        Reservations
// @Produce     json
// @Param       reservation_id  query  string  false  "Reservation id"  example(RES-20250704-0042)
// @Param       phone           query  string  false  "Phone number"
// @Param       customer_name   query  string  false  "Name or part of it"
// @Success     200  {object}  handlers.Envelope{data=domain.Reservation}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /reservations/lookup [get]
func (h *Handlers) LookupReservation(c *gin.Context) {
	var q services.LookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid query")
		return
	}
	r, err := h.reservations.Lookup(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// ModifyReservation godoc
// @ID          modifyReservation
// @Summary     Change a reservation
// @Description Changes date, time, party size or requests of a pending or confirmed reservation. The new slot is checked without counting the reservation itself.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Reservation id"
// @Param       body  body  services.ModifyReservationRequest  true  "Changes"
// @Success     200  {object}  handlers.Envelope{data=services.ReservationResult}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /reservations/{id} [patch]
func (h *Handlers) ModifyReservation(c *gin.Context) {
	var req services.ModifyReservationRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.reservations.Modify(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// CancelReservation godoc
// @ID          cancelReservation
// @Summary     Cancel a reservation
// @Description Cancels a pending or confirmed reservation and frees any table held for it.
// @Tags        Reservations
// @Produce     json
// @Param       id  path  string  true  "Reservation id"
// @Success     200  {object}  handlers.Envelope{data=domain.Reservation}
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /reservations/{id}/cancel [post]
func (h *Handlers) CancelReservation(c *gin.Context) {
	r, err := h.reservations.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}

// HoldTable godoc
// @ID          holdTable
// @Summary     Hold a table for a reservation
// @Description Marks an available table reserved for the reservation. Only that reservation can then be seated there.
// @Tags        Reservations
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Reservation id"
// @Param       body  body  handlers.HoldTableRequest  true  "Table"
// @Success     200  {object}  handlers.Envelope{data=domain.Table}
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /reservations/{id}/hold [post]
func (h *Handlers) HoldTable(c *gin.Context) {
	var req HoldTableRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.TableNumber < 1 {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "table_number is required")
		return
	}
	t, err := h.reservations.HoldTable(c.Request.Context(), c.Param("id"), req.TableNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}
