package domain

import (
	"time"
)

// Table is a physical table on the restaurant floor.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Number: human-facing table number; unique and stable.
//   - Capacity: seats at the table (> 0).
//   - Location: free-text zone ("Patio", "Window", ...).
//   - Status: floor state, persisted as Available / Occupied / Being Cleaned / Reserved.
//   - CurrentServiceID: ServiceRecord.ID of the seated party while Occupied.
//   - HeldForReservationID: Reservation.ID the table is held for while Reserved.
//   - IsActive: tables are deactivated, never deleted.
//   - Version: bumped on every status write.
type Table struct {
	ID                   string      `json:"id"                                gorm:"type:char(36);primaryKey"`
	Number               int         `json:"table_number"                      gorm:"not null;uniqueIndex:ux_tables_number"`
	Capacity             int         `json:"capacity"                          gorm:"not null;check:capacity > 0"`
	Location             string      `json:"location"                          gorm:"type:varchar(64);not null;default:''"`
	Status               TableStatus `json:"status"                            gorm:"type:varchar(32);not null;index"`
	CurrentServiceID     *string     `json:"current_service_id,omitempty"      gorm:"type:char(36);index"`
	HeldForReservationID *string     `json:"held_for_reservation_id,omitempty" gorm:"type:char(36)"`
	IsActive             bool        `json:"is_active"                         gorm:"not null"`
	Version              int         `json:"-"                                 gorm:"not null;default:0"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// TableName returns the database table name for Table.
func (Table) TableName() string { return "tables" }

// Reservation is a booking for a party at a date and time.
//
// Fields:
//   - ID: UUID primary key.
//   - Code: externally visible id, RES-YYYYMMDD-NNNN.
//   - Date / Time: local calendar date (YYYY-MM-DD) and start time (HH:MM).
//   - CheckedInAt: set when the party is seated from this reservation.
//   - TableNumbers: tables assigned at seating.
//   - ServiceRecordID: the ServiceRecord created at seating.
type Reservation struct {
	ID              string            `json:"id"                          gorm:"type:char(36);primaryKey"`
	Code            string            `json:"reservation_id"              gorm:"type:varchar(32);not null;uniqueIndex:ux_reservations_code"`
	CustomerName    string            `json:"customer_name"               gorm:"type:varchar(100);not null"`
	Phone           string            `json:"phone"                       gorm:"type:varchar(32);not null;index"`
	Email           string            `json:"email,omitempty"             gorm:"type:varchar(255);not null;default:''"`
	PartySize       int               `json:"party_size"                  gorm:"not null;check:party_size > 0"`
	Date            string            `json:"date"                        gorm:"type:char(10);not null;index:idx_reservations_slot,priority:1"`
	Time            string            `json:"time"                        gorm:"type:char(5);not null;index:idx_reservations_slot,priority:2"`
	SpecialRequests string            `json:"special_requests,omitempty"  gorm:"type:text"`
	Status          ReservationStatus `json:"status"                      gorm:"type:varchar(32);not null;index"`
	CheckedInAt     *time.Time        `json:"checked_in_at,omitempty"`
	TableNumbers    []int             `json:"table_numbers,omitempty"     gorm:"type:text;serializer:json"`
	ServiceRecordID *string           `json:"service_record_id,omitempty" gorm:"type:char(36)"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName returns the database table name for Reservation.
func (Reservation) TableName() string { return "reservations" }

// CheckedIn reports whether the party has arrived and been seated.
func (r Reservation) CheckedIn() bool { return r.CheckedInAt != nil }

// Seating sources recorded on a ServiceRecord.
const (
	SourceReservation = "reservation"
	SourceWalkIn      = "walk-in"
	SourceWaitlist    = "waitlist"
)

// ServiceRecord is one seated party occupying one or more tables, from
// seating to departure. Its table assignment never changes after creation.
type ServiceRecord struct {
	ID                 string        `json:"id"                          gorm:"type:char(36);primaryKey"`
	Code               string        `json:"service_id"                  gorm:"type:varchar(32);not null;uniqueIndex:ux_service_records_code"`
	Source             string        `json:"source"                      gorm:"type:varchar(16);not null"`
	ReservationID      *string       `json:"reservation_id,omitempty"    gorm:"type:char(36);index"`
	WaitlistID         *string       `json:"waitlist_id,omitempty"       gorm:"type:char(36)"`
	CustomerName       string        `json:"customer_name"               gorm:"type:varchar(100);not null"`
	Phone              string        `json:"phone"                       gorm:"type:varchar(32);not null;default:''"`
	PartySize          int           `json:"party_size"                  gorm:"not null;check:party_size > 0"`
	TableNumbers       []int         `json:"table_numbers"               gorm:"type:text;serializer:json"`
	SpecialRequests    string        `json:"special_requests,omitempty"  gorm:"type:text"`
	SeatedAt           time.Time     `json:"seated_at"                   gorm:"not null"`
	EstimatedDeparture time.Time     `json:"estimated_departure"         gorm:"not null"`
	DepartedAt         *time.Time    `json:"departed_at,omitempty"`
	Status             ServiceStatus `json:"status"                      gorm:"type:varchar(16);not null;index"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TableName returns the database table name for ServiceRecord.
func (ServiceRecord) TableName() string { return "service_records" }

// WaitlistEntry is a walk-in party waiting for a table. Priority is assigned
// at arrival and never renumbered.
type WaitlistEntry struct {
	ID              string         `json:"id"                         gorm:"type:char(36);primaryKey"`
	Code            string         `json:"waitlist_id"                gorm:"type:varchar(40);not null;uniqueIndex:ux_waitlist_code"`
	CustomerName    string         `json:"customer_name"              gorm:"type:varchar(100);not null"`
	Phone           string         `json:"phone"                      gorm:"type:varchar(32);not null"`
	Email           string         `json:"email,omitempty"            gorm:"type:varchar(255);not null;default:''"`
	PartySize       int            `json:"party_size"                 gorm:"not null;check:party_size > 0"`
	AddedAt         time.Time      `json:"added_at"                   gorm:"not null"`
	EstimatedWait   int            `json:"estimated_wait"             gorm:"not null"`
	Status          WaitlistStatus `json:"status"                     gorm:"type:varchar(32);not null;index"`
	Priority        int            `json:"priority"                   gorm:"not null;index"`
	SpecialRequests string         `json:"special_requests,omitempty" gorm:"type:text"`
	NotifiedAt      *time.Time     `json:"notified_at,omitempty"`
	SeatedAt        *time.Time     `json:"seated_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName returns the database table name for WaitlistEntry.
func (WaitlistEntry) TableName() string { return "waitlist" }

// QueueLock is a named row that a transaction updates first to serialize
// read-then-insert work across processes. Version counts acquisitions.
type QueueLock struct {
	Name      string    `json:"name"       gorm:"type:varchar(32);primaryKey"`
	Version   int64     `json:"version"    gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for QueueLock.
func (QueueLock) TableName() string { return "queue_locks" }
