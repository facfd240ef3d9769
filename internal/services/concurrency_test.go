package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/repo"
)

// openFileStore opens the SQLite file at path the way the server does, so
// several handles on one path behave like separate processes.
func openFileStore(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fileDeps uses a clock that ticks one millisecond per read, so codes
// stamped from it stay distinct across many quick writes.
func fileDeps(db *gorm.DB, tick *atomic.Int64) Deps {
	settings := DefaultSettings()
	settings.Location = time.UTC
	return Deps{DB: db, Settings: settings, Now: func() time.Time {
		return fixedNow.Add(time.Duration(tick.Add(1)) * time.Millisecond)
	}}
}

func TestSeatParty_ConcurrentSameTable(t *testing.T) {
	ctx := context.Background()
	db := openFileStore(t, filepath.Join(t.TempDir(), "floor.db"))
	if _, err := repo.CreateTable(ctx, db, 1, 4, "Main"); err != nil {
		t.Fatal(err)
	}
	seating := NewFloor(fileDeps(db, new(atomic.Int64))).Seating

	const callers = 8
	var (
		wg                       sync.WaitGroup
		mu                       sync.Mutex
		seated, conflicts, other int
		start                    = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := seating.SeatParty(ctx, SeatRequest{
				CustomerName: fmt.Sprintf("Walk-in %d", i),
				PartySize:    2,
				TableNumbers: []int{1},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				seated++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				other++
				t.Errorf("caller %d: %v", i, err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if seated != 1 || conflicts != callers-1 || other != 0 {
		t.Fatalf("seated=%d conflicts=%d other=%d", seated, conflicts, other)
	}
	active, err := repo.ListServiceRecords(ctx, db, domain.ServiceActive)
	if err != nil || len(active) != 1 {
		t.Fatalf("active services=%d err=%v", len(active), err)
	}
	tb, err := repo.GetTableByNumber(ctx, db, 1)
	if err != nil || tb.Status != domain.TableOccupied || tb.CurrentServiceID == nil || *tb.CurrentServiceID != active[0].ID {
		t.Fatalf("table=%+v err=%v", tb, err)
	}
}

func TestWaitlistAdd_ConcurrentStoresHaveUniquePriorities(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "floor.db")
	tick := new(atomic.Int64)
	// Two handles with their own services stand in for two API processes;
	// the in-process mutex cannot order adds between them.
	stands := []*WaitlistService{
		NewFloor(fileDeps(openFileStore(t, path), tick)).Waitlist,
		NewFloor(fileDeps(openFileStore(t, path), tick)).Waitlist,
	}

	const perStand = 6
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	for s, wl := range stands {
		for i := 0; i < perStand; i++ {
			wg.Add(1)
			go func(wl *WaitlistService, name string) {
				defer wg.Done()
				<-start
				if _, err := wl.Add(ctx, AddWaitlistRequest{CustomerName: name, Phone: "555-010-0000", PartySize: 2}); err != nil {
					t.Errorf("Add(%s): %v", name, err)
				}
			}(wl, fmt.Sprintf("Party %d-%d", s, i))
		}
	}
	close(start)
	wg.Wait()

	entries, err := stands[0].List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	total := len(stands) * perStand
	if len(entries) != total {
		t.Fatalf("entries=%d, want %d", len(entries), total)
	}
	for i, e := range entries {
		if e.Priority != i+1 {
			t.Fatalf("entry %d (%s) priority=%d, want %d", i, e.CustomerName, e.Priority, i+1)
		}
	}
}
