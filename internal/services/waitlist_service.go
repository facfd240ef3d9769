package services

import (
	"context"
	"strings"
	"sync"
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

var activeWaitlist = []domain.WaitlistStatus{domain.WaitlistWaiting, domain.WaitlistNotified}

// AddWaitlistRequest puts a walk-in party in the queue.
type AddWaitlistRequest struct {
	CustomerName    string `json:"customer_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PartySize       int    `json:"party_size"`
	SpecialRequests string `json:"special_requests"`
}

// WaitEstimate is the quoted wait for a party joining now.
type WaitEstimate struct {
	PartySize     int `json:"party_size"`
	PartiesAhead  int `json:"parties_ahead"`
	EstimatedWait int `json:"estimated_wait_minutes"`
}

// WaitlistService is the walk-in queue.
type WaitlistService struct {
	Deps

	// mu queues adds from this process before they reach the store lock.
	mu sync.Mutex
}

// Add validates req and appends the party with the next priority.
//
// Priority is one past the highest active priority, so it never collides
// with a live entry even after removals left gaps.
func (s *WaitlistService) Add(ctx context.Context, req AddWaitlistRequest) (*domain.WaitlistEntry, error) {
	tr := otel.Tracer("services/WaitlistService")
	ctx, span := tr.Start(ctx, "Add", trace.WithAttributes(attribute.Int("party.size", req.PartySize)))
	defer span.End()

	start := time.Now()
	e, err := s.add(ctx, req)
	s.observe("waitlist-add", start, err)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{Type: events.WaitlistAdded, WaitlistID: e.Code, PartySize: e.PartySize})
	s.refreshLength(ctx)
	return e, nil
}

func (s *WaitlistService) add(ctx context.Context, req AddWaitlistRequest) (*domain.WaitlistEntry, error) {
	cust := floor.Customer{Name: req.CustomerName, Phone: req.Phone, Email: req.Email}
	if err := cust.Validate(); err != nil {
		return nil, validationf("%v", err)
	}
	if err := floor.ValidatePartySize(req.PartySize); err != nil {
		return nil, validationf("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var e *domain.WaitlistEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Other processes adding now wait here, so the count and max below
		// come from one consistent queue.
		if err := repo.LockWaitlist(ctx, tx); err != nil {
			return translate(err, "waitlist")
		}
		ahead, err := repo.CountActiveWaitlist(ctx, tx)
		if err != nil {
			return translate(err, "waitlist")
		}
		top, err := repo.MaxActivePriority(ctx, tx)
		if err != nil {
			return translate(err, "waitlist")
		}
		now := s.now()
		// Codes carry the millisecond; step forward on a collision.
		stamp := now
		code, err := uniqueCode(ctx, tx, &domain.WaitlistEntry{}, func() string {
			c := floor.WaitlistCode(stamp)
			stamp = stamp.Add(time.Millisecond)
			return c
		})
		if err != nil {
			return err
		}
		e = &domain.WaitlistEntry{
			Code:            code,
			CustomerName:    strings.TrimSpace(req.CustomerName),
			Phone:           strings.TrimSpace(req.Phone),
			Email:           strings.TrimSpace(req.Email),
			PartySize:       req.PartySize,
			AddedAt:         now.UTC(),
			EstimatedWait:   floor.EstimateWait(req.PartySize, int(ahead)),
			Status:          domain.WaitlistWaiting,
			Priority:        top + 1,
			SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		}
		return translate(repo.CreateWaitlistEntry(ctx, tx, e), "waitlist entry")
	})
	if err != nil {
		return nil, translate(err, "waitlist entry")
	}
	return e, nil
}

// List returns entries in queue order. With no statuses it returns the
// active queue.
func (s *WaitlistService) List(ctx context.Context, statuses ...domain.WaitlistStatus) ([]domain.WaitlistEntry, error) {
	tr := otel.Tracer("services/WaitlistService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	if len(statuses) == 0 {
		statuses = activeWaitlist
	}
	start := time.Now()
	out, err := readOnce(ctx, "list-waitlist", func() ([]domain.WaitlistEntry, error) {
		return repo.ListWaitlist(ctx, s.DB, statuses...)
	})
	err = translate(err, "waitlist")
	s.observe("waitlist-list", start, err)
	if out == nil {
		out = []domain.WaitlistEntry{}
	}
	return out, err
}

// Notify tells a waiting party their table is ready. notified_at is set
// once; notifying a notified entry returns it unchanged.
func (s *WaitlistService) Notify(ctx context.Context, ref string) (*domain.WaitlistEntry, error) {
	tr := otel.Tracer("services/WaitlistService")
	ctx, span := tr.Start(ctx, "Notify", trace.WithAttributes(attribute.String("waitlist.ref", ref)))
	defer span.End()

	start := time.Now()
	e, changed, err := s.notify(ctx, ref)
	s.observe("waitlist-notify", start, err)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(ctx, events.Event{Type: events.WaitlistNotified, WaitlistID: e.Code, PartySize: e.PartySize})
	}
	return e, nil
}

func (s *WaitlistService) notify(ctx context.Context, ref string) (*domain.WaitlistEntry, bool, error) {
	e, err := s.get(ctx, s.DB, ref)
	if err != nil {
		return nil, false, err
	}
	switch e.Status {
	case domain.WaitlistNotified:
		return e, false, nil
	case domain.WaitlistWaiting:
	default:
		return nil, false, conflictf("waitlist entry %s is %s", e.Code, e.Status.Stored())
	}
	now := s.now().UTC()
	err = repo.UpdateWaitlistEntry(ctx, s.DB, e.ID, []domain.WaitlistStatus{domain.WaitlistWaiting}, map[string]any{
		"status":      domain.WaitlistNotified,
		"notified_at": now,
	})
	if err != nil {
		return nil, false, translate(err, "waitlist entry")
	}
	e.Status, e.NotifiedAt = domain.WaitlistNotified, &now
	return e, true, nil
}

// UpdateStatus closes an active entry as cancelled or no-show. Seating goes
// through SeatingService.SeatParty.
func (s *WaitlistService) UpdateStatus(ctx context.Context, ref string, to domain.WaitlistStatus) (*domain.WaitlistEntry, error) {
	tr := otel.Tracer("services/WaitlistService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(attribute.String("waitlist.ref", ref), attribute.String("waitlist.status", to.String())),
	)
	defer span.End()

	start := time.Now()
	e, err := s.updateStatus(ctx, ref, to)
	s.observe("waitlist-update", start, err)
	if err == nil {
		s.refreshLength(ctx)
	}
	return e, err
}

func (s *WaitlistService) updateStatus(ctx context.Context, ref string, to domain.WaitlistStatus) (*domain.WaitlistEntry, error) {
	switch to {
	case domain.WaitlistCancelled, domain.WaitlistNoShow:
	case domain.WaitlistNotified:
		return s.Notify(ctx, ref)
	case domain.WaitlistSeated:
		return nil, validationf("use seat-party to seat a waitlist entry")
	default:
		return nil, validationf("status %v cannot be set directly", to)
	}
	e, err := s.get(ctx, s.DB, ref)
	if err != nil {
		return nil, err
	}
	if !e.Status.Active() {
		return nil, conflictf("waitlist entry %s is already %s", e.Code, e.Status.Stored())
	}
	if err := repo.UpdateWaitlistEntry(ctx, s.DB, e.ID, activeWaitlist, map[string]any{"status": to}); err != nil {
		return nil, translate(err, "waitlist entry")
	}
	e.Status = to
	return e, nil
}

// Remove deletes an entry. Priorities of the others are not renumbered.
func (s *WaitlistService) Remove(ctx context.Context, ref string) error {
	tr := otel.Tracer("services/WaitlistService")
	ctx, span := tr.Start(ctx, "Remove", trace.WithAttributes(attribute.String("waitlist.ref", ref)))
	defer span.End()

	start := time.Now()
	err := func() error {
		e, err := s.get(ctx, s.DB, ref)
		if err != nil {
			return err
		}
		return translate(repo.DeleteWaitlistEntry(ctx, s.DB, e.ID), "waitlist entry")
	}()
	s.observe("waitlist-remove", start, err)
	if err == nil {
		s.refreshLength(ctx)
	}
	return err
}

// Estimate quotes the wait for a party of partySize joining now.
func (s *WaitlistService) Estimate(ctx context.Context, partySize int) (*WaitEstimate, error) {
	if err := floor.ValidatePartySize(partySize); err != nil {
		return nil, validationf("%v", err)
	}
	ahead, err := readOnce(ctx, "count-waitlist", func() (int64, error) {
		return repo.CountActiveWaitlist(ctx, s.DB)
	})
	if err != nil {
		return nil, translate(err, "waitlist")
	}
	return &WaitEstimate{
		PartySize:     partySize,
		PartiesAhead:  int(ahead),
		EstimatedWait: floor.EstimateWait(partySize, int(ahead)),
	}, nil
}

func (s *WaitlistService) get(ctx context.Context, db *gorm.DB, ref string) (*domain.WaitlistEntry, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, validationf("waitlist id is required")
	}
	e, err := readOnce(ctx, "get-waitlist", func() (*domain.WaitlistEntry, error) {
		return repo.GetWaitlistEntry(ctx, db, ref)
	})
	if err != nil {
		return nil, translate(err, "waitlist entry "+ref)
	}
	return e, nil
}

func (s *WaitlistService) refreshLength(ctx context.Context) {
	if n, err := repo.CountActiveWaitlist(ctx, s.DB); err == nil {
		s.metrics().SetWaitlistLength(int(n))
	}
}
