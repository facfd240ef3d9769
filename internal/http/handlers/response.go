// Package handlers provides the HTTP endpoints of the host stand.
//
// Every response uses one of two envelopes:
//
//	HTTP/1.1 200 OK
//	{ "success": true, "data": { ... } }
//
//	HTTP/1.1 409 Conflict
//	{
//	  "success": false,
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "conflict",
//	  "error": "seat-party: table(s) 4 not eligible: table 4 is Occupied",
//	  "blocked_tables": [4]
//	}
//
// Service errors are mapped in respondError: validation 400, not found 404,
// conflict 409, anything else 500 with a generic message. The real cause of
// a 500 is logged, never returned.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/hoststand/internal/http/middleware"
	"github.com/tbourn/hoststand/internal/services"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success   bool   `json:"success" example:"false"`
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Error     string `json:"error" example:"reservation not found"`
	// Set on table conflicts only.
	BlockedTables []int `json:"blocked_tables,omitempty"`
	RolledBack    []int `json:"rolled_back_tables,omitempty"`
	NotAttempted  []int `json:"not_attempted_tables,omitempty"`
}

// Envelope is the success envelope.
type Envelope struct {
	Success bool `json:"success" example:"true"`
	Data    any  `json:"data"`
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Error:     msg,
	})
}

// Fail is fail for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Success: true, Data: data})
}

// respondError translates a service error into the failure envelope.
func respondError(c *gin.Context, err error) {
	resp := ErrorResponse{RequestID: middleware.RequestIDFrom(c), Error: err.Error()}
	status := http.StatusInternalServerError

	var tc *services.TableConflictError
	switch {
	case errors.Is(err, services.ErrValidation):
		status, resp.Code = http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrNotFound):
		status, resp.Code = http.StatusNotFound, ErrCodeNotFound
	case errors.As(err, &tc):
		status, resp.Code = http.StatusConflict, ErrCodeConflict
		resp.BlockedTables, resp.RolledBack, resp.NotAttempted = tc.Blocked, tc.RolledBack, tc.NotAttempted
	case errors.Is(err, services.ErrConflict):
		status, resp.Code = http.StatusConflict, ErrCodeConflict
	default:
		resp.Code, resp.Error = ErrCodeInternal, middleware.GenericErrorMessage
		middleware.LoggerFrom(c).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, resp)
}
