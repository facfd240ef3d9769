package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/hoststand/internal/domain"
)

func TestServiceRecords_CreateListComplete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC)

	late := &domain.ServiceRecord{Code: "SVC-2", Source: domain.SourceWalkIn, CustomerName: "B", PartySize: 2, TableNumbers: []int{2}, SeatedAt: base.Add(time.Hour), EstimatedDeparture: base.Add(150 * time.Minute), Status: domain.ServiceActive}
	early := &domain.ServiceRecord{Code: "SVC-1", Source: domain.SourceReservation, CustomerName: "A", PartySize: 4, TableNumbers: []int{1, 3}, SeatedAt: base, EstimatedDeparture: base.Add(90 * time.Minute), Status: domain.ServiceActive}
	for _, s := range []*domain.ServiceRecord{late, early} {
		if err := CreateServiceRecord(ctx, db, s); err != nil {
			t.Fatalf("CreateServiceRecord: %v", err)
		}
	}

	active, err := ListServiceRecords(ctx, db, domain.ServiceActive)
	if err != nil || len(active) != 2 || active[0].Code != "SVC-1" {
		t.Fatalf("active = %+v err=%v", active, err)
	}
	if got := active[0].TableNumbers; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("table numbers = %v", got)
	}

	departed := base.Add(80 * time.Minute)
	if err := CompleteServiceRecord(ctx, db, early.ID, departed); err != nil {
		t.Fatalf("CompleteServiceRecord: %v", err)
	}
	if err := CompleteServiceRecord(ctx, db, early.ID, departed); !errors.Is(err, ErrConflict) {
		t.Fatalf("second completion should conflict, got %v", err)
	}
	if err := CompleteServiceRecord(ctx, db, "nope", departed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := GetServiceRecord(ctx, db, "SVC-1")
	if err != nil || got.Status != domain.ServiceCompleted || got.DepartedAt == nil || !got.DepartedAt.Equal(departed) {
		t.Fatalf("completed record = %+v err=%v", got, err)
	}
	if active, _ := ListServiceRecords(ctx, db, domain.ServiceActive); len(active) != 1 {
		t.Fatalf("expected 1 active, got %d", len(active))
	}
	if all, _ := ListServiceRecords(ctx, db); len(all) != 2 {
		t.Fatalf("expected 2 total, got %d", len(all))
	}
}
