package domain

import (
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Table{}, &Reservation{}, &ServiceRecord{}, &WaitlistEntry{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(Table{}).TableName():         "tables",
		(Reservation{}).TableName():   "reservations",
		(ServiceRecord{}).TableName(): "service_records",
		(WaitlistEntry{}).TableName(): "waitlist",
		(Idempotency{}).TableName():   "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestMigrations_Indexes(t *testing.T) {
	db := newDomainDB(t)
	m := db.Migrator()

	for _, ix := range []struct {
		model any
		name  string
	}{
		{&Table{}, "ux_tables_number"},
		{&Reservation{}, "ux_reservations_code"},
		{&Reservation{}, "idx_reservations_slot"},
		{&ServiceRecord{}, "ux_service_records_code"},
		{&WaitlistEntry{}, "ux_waitlist_code"},
		{&Idempotency{}, "ux_idempotency_scope_key"},
	} {
		if !m.HasIndex(ix.model, ix.name) {
			t.Fatalf("expected index %s on %T", ix.name, ix.model)
		}
	}
}

func TestTable_PersistsStoredVocabulary(t *testing.T) {
	db := newDomainDB(t)

	tbl := &Table{ID: uuid.NewString(), Number: 7, Capacity: 4, Status: TableBeingCleaned, IsActive: true}
	if err := db.Create(tbl).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	var raw string
	if err := db.Raw("SELECT status FROM tables WHERE number = ?", 7).Scan(&raw).Error; err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if raw != "Being Cleaned" {
		t.Fatalf("stored status = %q; want %q", raw, "Being Cleaned")
	}

	var got Table
	if err := db.First(&got, "number = ?", 7).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if got.Status != TableBeingCleaned {
		t.Fatalf("loaded status = %v", got.Status)
	}
}

func TestTable_RejectsInvalidStatusOnReadAndWrite(t *testing.T) {
	db := newDomainDB(t)

	if err := db.Create(&Table{ID: uuid.NewString(), Number: 1, Capacity: 2, IsActive: true}).Error; err == nil {
		t.Fatalf("expected write of unset status to fail")
	}

	if err := db.Exec(
		"INSERT INTO tables (id, number, capacity, location, status, is_active, version, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?,?)",
		uuid.NewString(), 2, 2, "", "Broken", true, 0, time.Now(), time.Now(),
	).Error; err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	var got Table
	err := db.First(&got, "number = ?", 2).Error
	if err == nil || !strings.Contains(err.Error(), "unknown status") {
		t.Fatalf("expected unknown status error on read, got %v", err)
	}
}

func TestReservation_TableNumbersSerializer(t *testing.T) {
	db := newDomainDB(t)
	now := time.Now().UTC()

	r := &Reservation{
		ID: uuid.NewString(), Code: "RES-20250101-0001", CustomerName: "Ada", Phone: "5551234567",
		PartySize: 4, Date: "2025-01-01", Time: "19:00", Status: ReservationSeated,
		CheckedInAt: &now, TableNumbers: []int{3, 4},
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got Reservation
	if err := db.First(&got, "code = ?", r.Code).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if len(got.TableNumbers) != 2 || got.TableNumbers[0] != 3 || got.TableNumbers[1] != 4 {
		t.Fatalf("table numbers = %v", got.TableNumbers)
	}
	if !got.CheckedIn() {
		t.Fatalf("expected CheckedIn() to be true")
	}
}

func TestIdempotency_UniqueScopeKey(t *testing.T) {
	db := newDomainDB(t)
	exp := time.Now().UTC().Add(time.Hour)

	a := &Idempotency{ID: uuid.NewString(), Scope: "seat-party", Key: "k1", ResourceID: uuid.NewString(), Status: 200, ExpiresAt: exp}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create a: %v", err)
	}
	b := &Idempotency{ID: uuid.NewString(), Scope: "seat-party", Key: "k1", ResourceID: uuid.NewString(), Status: 200, ExpiresAt: exp}
	if err := db.Create(b).Error; err == nil {
		t.Fatalf("expected unique violation for duplicate (scope, key)")
	}
	c := &Idempotency{ID: uuid.NewString(), Scope: "waitlist-add", Key: "k1", ResourceID: uuid.NewString(), Status: 200, ExpiresAt: exp}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("same key in another scope should be allowed: %v", err)
	}
}
