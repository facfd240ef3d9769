package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tbourn/hoststand/internal/domain"
	"github.com/tbourn/hoststand/internal/events"
	"github.com/tbourn/hoststand/internal/repo"
)

// fixedNow is a Friday evening during service.
var fixedNow = time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)

const today = "2025-07-04"

type recordingMetrics struct {
	mu       sync.Mutex
	ops      map[string]string
	gauges   map[string]int
	waitlist int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{ops: map[string]string{}, gauges: map[string]int{}, waitlist: -1}
}

func (m *recordingMetrics) ObserveOperation(op, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op] = outcome
}

func (m *recordingMetrics) SetFloorGauge(status string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[status] = n
}

func (m *recordingMetrics) SetWaitlistLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waitlist = n
}

type recordingEvents struct {
	mu   sync.Mutex
	evs  []events.Event
	fail error
}

func (r *recordingEvents) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return r.fail
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.evs))
	for i, e := range r.evs {
		out[i] = e.Type
	}
	return out
}

// fixture wires every service against one in-memory database.
type fixture struct {
	db        *gorm.DB
	metrics   *recordingMetrics
	events    *recordingEvents
	deps      Deps
	seating   *SeatingService
	waitlist  *WaitlistService
	reserve   *ReservationService
	available *AvailabilityService
	ctx       context.Context
}

func newFixture(t *testing.T, mutate ...func(*FloorSettings)) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	settings := DefaultSettings()
	settings.Location = time.UTC
	for _, m := range mutate {
		m(&settings)
	}

	f := &fixture{
		db:      db,
		metrics: newRecordingMetrics(),
		events:  &recordingEvents{},
		ctx:     context.Background(),
	}
	f.deps = Deps{
		DB:       db,
		Settings: settings,
		Metrics:  f.metrics,
		Events:   f.events,
		Now:      func() time.Time { return fixedNow },
	}
	fl := NewFloor(f.deps)
	f.waitlist = fl.Waitlist
	f.seating = fl.Seating
	f.reserve = fl.Reservations
	f.available = fl.Availability
	return f
}

// tables creates active tables with capacities caps, numbered from 1.
func (f *fixture) tables(t *testing.T, caps ...int) {
	t.Helper()
	for i, c := range caps {
		if _, err := repo.CreateTable(f.ctx, f.db, i+1, c, "Main"); err != nil {
			t.Fatalf("CreateTable: %v", err)
		}
	}
}

func (f *fixture) table(t *testing.T, n int) domain.Table {
	t.Helper()
	tb, err := repo.GetTableByNumber(f.ctx, f.db, n)
	if err != nil {
		t.Fatalf("GetTableByNumber(%d): %v", n, err)
	}
	return *tb
}

func (f *fixture) reservation(t *testing.T, name, phone, date, clock string, size int) *domain.Reservation {
	t.Helper()
	r := &domain.Reservation{
		Code:         "RES-" + uuid.NewString()[:8],
		CustomerName: name,
		Phone:        phone,
		PartySize:    size,
		Date:         date,
		Time:         clock,
		Status:       domain.ReservationConfirmed,
	}
	if err := repo.CreateReservation(f.ctx, f.db, r); err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	return r
}
