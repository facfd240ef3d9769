package repo

import (
	"context"
	"testing"

	"github.com/tbourn/hoststand/internal/domain"
)

func TestFloorStats_ChangesOnEveryWrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	empty, err := FloorStats(ctx, db)
	if err != nil {
		t.Fatalf("FloorStats: %v", err)
	}
	if empty.Rows != 0 || empty.Versions != 0 || empty.LastUpdate != nil {
		t.Fatalf("empty stamp = %+v", empty)
	}

	if _, err := CreateTable(ctx, db, 1, 4, ""); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	afterCreate, _ := FloorStats(ctx, db)
	if afterCreate.Rows != 1 || afterCreate.LastUpdate == nil {
		t.Fatalf("after create = %+v", afterCreate)
	}

	if err := TransitionTable(ctx, db, 1, []domain.TableStatus{domain.TableAvailable}, domain.TableOccupied, nil, nil); err != nil {
		t.Fatalf("TransitionTable: %v", err)
	}
	afterSeat, _ := FloorStats(ctx, db)
	if afterSeat.Versions != 1 || afterSeat.Versions == afterCreate.Versions {
		t.Fatalf("stamp should change after a status write: %+v", afterSeat)
	}
}
