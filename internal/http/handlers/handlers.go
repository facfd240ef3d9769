package handlers

import (
	"context"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/repo"
	"github.com/tbourn/hoststand/internal/services"
)

// FloorService is the host-stand workflow consumed by the host endpoints.
// *services.SeatingService implements it.
type FloorService interface {
	Dashboard(ctx context.Context) (*services.Dashboard, error)
	CheckIn(ctx context.Context, q services.LookupQuery) (*services.CheckInResult, error)
	CheckWalkIn(ctx context.Context, req services.WalkInRequest) (*services.WalkInResult, error)
	SeatParty(ctx context.Context, req services.SeatRequest) (*services.SeatResult, error)
	CompleteService(ctx context.Context, ref string) (*services.CompleteResult, error)
	MarkTableClean(ctx context.Context, number int) (*services.CleanResult, error)
	ListTables(ctx context.Context, includeInactive bool) ([]domain.Table, error)
	FloorVersion(ctx context.Context) (repo.FloorStamp, error)
}

// ReservationService is the booking workflow.
type ReservationService interface {
	Create(ctx context.Context, req services.CreateReservationRequest) (*services.ReservationResult, error)
	Lookup(ctx context.Context, q services.LookupQuery) (*domain.Reservation, error)
	Modify(ctx context.Context, ref string, req services.ModifyReservationRequest) (*services.ReservationResult, error)
	Cancel(ctx context.Context, ref string) (*domain.Reservation, error)
	HoldTable(ctx context.Context, ref string, number int) (*domain.Table, error)
}

// AvailabilityService answers slot questions.
type AvailabilityService interface {
	Check(ctx context.Context, req services.AvailabilityRequest) (*services.AvailabilityResult, error)
}

// WaitlistService is the walk-in queue.
type WaitlistService interface {
	Add(ctx context.Context, req services.AddWaitlistRequest) (*domain.WaitlistEntry, error)
	List(ctx context.Context, statuses ...domain.WaitlistStatus) ([]domain.WaitlistEntry, error)
	Notify(ctx context.Context, ref string) (*domain.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, ref string, to domain.WaitlistStatus) (*domain.WaitlistEntry, error)
	Remove(ctx context.Context, ref string) error
	Estimate(ctx context.Context, partySize int) (*services.WaitEstimate, error)
}

// Handlers groups every endpoint. Any service may be nil in tests that do
// not exercise it.
type Handlers struct {
	floor        FloorService
	reservations ReservationService
	availability AvailabilityService
	waitlist     WaitlistService
}

// New binds the handlers to their services.
func New(floor FloorService, reservations ReservationService, availability AvailabilityService, waitlist WaitlistService) *Handlers {
	return &Handlers{floor: floor, reservations: reservations, availability: availability, waitlist: waitlist}
}
