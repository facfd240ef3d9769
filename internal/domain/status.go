// Package domain defines the persistence models for the floor: tables,
// reservations, service records, and waitlist entries.
//
// This file holds the status enums. Each enum has exactly one internal
// vocabulary (lowercase, used in code and logs) and one persisted vocabulary
// (the exact strings an external dashboard reads). Both directions are
// explicit lookup tables; loading or storing a value outside them fails.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStatus is returned when a status value is outside its vocabulary.
var ErrUnknownStatus = errors.New("unknown status")

// vocabulary maps an enum to its persisted and internal names.
type vocabulary[S ~uint8] struct {
	kind     string
	stored   map[S]string
	internal map[S]string
	parse    map[string]S
}

func newVocabulary[S ~uint8](kind string, stored, internal map[S]string, aliases map[string]S) *vocabulary[S] {
	v := &vocabulary[S]{kind: kind, stored: stored, internal: internal, parse: make(map[string]S)}
	for s, name := range stored {
		v.parse[name] = s
	}
	for s, name := range internal {
		v.parse[name] = s
	}
	for name, s := range aliases {
		v.parse[name] = s
	}
	return v
}

func (v *vocabulary[S]) storedName(s S) (string, error) {
	name, ok := v.stored[s]
	if !ok {
		return "", fmt.Errorf("%w: %s %d", ErrUnknownStatus, v.kind, s)
	}
	return name, nil
}

func (v *vocabulary[S]) internalName(s S) string {
	if name, ok := v.internal[s]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", v.kind, s)
}

// lookup is exact first (persisted names are case-sensitive), then falls back
// to the lowercase internal form.
func (v *vocabulary[S]) lookup(raw string) (S, error) {
	if s, ok := v.parse[raw]; ok {
		return s, nil
	}
	if s, ok := v.parse[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownStatus, v.kind, raw)
}

func (v *vocabulary[S]) scan(src any) (S, error) {
	switch x := src.(type) {
	case string:
		return v.lookup(x)
	case []byte:
		return v.lookup(string(x))
	case nil:
		return 0, fmt.Errorf("%w: %s is NULL", ErrUnknownStatus, v.kind)
	default:
		return 0, fmt.Errorf("%w: %s from %T", ErrUnknownStatus, v.kind, src)
	}
}

func (v *vocabulary[S]) marshal(s S) ([]byte, error) {
	name, err := v.storedName(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(name)
}

func (v *vocabulary[S]) unmarshal(b []byte) (S, error) {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return 0, err
	}
	return v.lookup(raw)
}

// ---- Table ----

// TableStatus is the floor state of a physical table.
type TableStatus uint8

const (
	TableAvailable TableStatus = iota + 1
	TableOccupied
	TableBeingCleaned
	TableReserved
)

var tableVocab = newVocabulary("table status",
	map[TableStatus]string{
		TableAvailable:    "Available",
		TableOccupied:     "Occupied",
		TableBeingCleaned: "Being Cleaned",
		TableReserved:     "Reserved",
	},
	map[TableStatus]string{
		TableAvailable:    "available",
		TableOccupied:     "occupied",
		TableBeingCleaned: "being_cleaned",
		TableReserved:     "reserved",
	},
	map[string]TableStatus{"being cleaned": TableBeingCleaned},
)

// ParseTableStatus accepts either vocabulary.
func ParseTableStatus(s string) (TableStatus, error) { return tableVocab.lookup(s) }

func (s TableStatus) String() string { return tableVocab.internalName(s) }

// Stored returns the persisted name, or "" for an invalid value.
func (s TableStatus) Stored() string { n, _ := tableVocab.storedName(s); return n }

func (s TableStatus) Valid() bool { _, ok := tableVocab.stored[s]; return ok }

func (s TableStatus) Value() (driver.Value, error) { return tableVocab.storedName(s) }

func (s *TableStatus) Scan(src any) (err error) { *s, err = tableVocab.scan(src); return err }

func (s TableStatus) MarshalJSON() ([]byte, error) { return tableVocab.marshal(s) }

func (s *TableStatus) UnmarshalJSON(b []byte) (err error) { *s, err = tableVocab.unmarshal(b); return err }

func (TableStatus) GormDataType() string { return "string" }

// ---- Reservation ----

// ReservationStatus tracks a booking from creation to its terminal state.
// Check-in is not a status: it is implied by Reservation.CheckedInAt.
type ReservationStatus uint8

const (
	ReservationPending ReservationStatus = iota + 1
	ReservationConfirmed
	ReservationSeated
	ReservationCompleted
	ReservationCancelled
	ReservationNoShow
)

var reservationVocab = newVocabulary("reservation status",
	map[ReservationStatus]string{
		ReservationPending:   "Pending",
		ReservationConfirmed: "Confirmed",
		ReservationSeated:    "Seated",
		ReservationCompleted: "Completed",
		ReservationCancelled: "Cancelled",
		ReservationNoShow:    "no-show",
	},
	map[ReservationStatus]string{
		ReservationPending:   "pending",
		ReservationConfirmed: "confirmed",
		ReservationSeated:    "seated",
		ReservationCompleted: "completed",
		ReservationCancelled: "cancelled",
		ReservationNoShow:    "no_show",
	},
	map[string]ReservationStatus{
		"canceled": ReservationCancelled,
		"no show":  ReservationNoShow,
	},
)

func ParseReservationStatus(s string) (ReservationStatus, error) { return reservationVocab.lookup(s) }

func (s ReservationStatus) String() string { return reservationVocab.internalName(s) }

func (s ReservationStatus) Stored() string { n, _ := reservationVocab.storedName(s); return n }

func (s ReservationStatus) Valid() bool { _, ok := reservationVocab.stored[s]; return ok }

// Open reports whether the reservation still expects the party to arrive.
func (s ReservationStatus) Open() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCancelled || s == ReservationNoShow || s == ReservationCompleted
}

func (s ReservationStatus) Value() (driver.Value, error) { return reservationVocab.storedName(s) }

func (s *ReservationStatus) Scan(src any) (err error) { *s, err = reservationVocab.scan(src); return err }

func (s ReservationStatus) MarshalJSON() ([]byte, error) { return reservationVocab.marshal(s) }

func (s *ReservationStatus) UnmarshalJSON(b []byte) (err error) {
	*s, err = reservationVocab.unmarshal(b)
	return err
}

func (ReservationStatus) GormDataType() string { return "string" }

// ---- Service record ----

// ServiceStatus is the lifecycle of one seated party.
type ServiceStatus uint8

const (
	ServiceActive ServiceStatus = iota + 1
	ServiceCompleted
)

var serviceVocab = newVocabulary("service status",
	map[ServiceStatus]string{ServiceActive: "Active", ServiceCompleted: "Completed"},
	map[ServiceStatus]string{ServiceActive: "active", ServiceCompleted: "completed"},
	nil,
)

func ParseServiceStatus(s string) (ServiceStatus, error) { return serviceVocab.lookup(s) }

func (s ServiceStatus) String() string { return serviceVocab.internalName(s) }

func (s ServiceStatus) Stored() string { n, _ := serviceVocab.storedName(s); return n }

func (s ServiceStatus) Value() (driver.Value, error) { return serviceVocab.storedName(s) }

func (s *ServiceStatus) Scan(src any) (err error) { *s, err = serviceVocab.scan(src); return err }

func (s ServiceStatus) MarshalJSON() ([]byte, error) { return serviceVocab.marshal(s) }

func (s *ServiceStatus) UnmarshalJSON(b []byte) (err error) { *s, err = serviceVocab.unmarshal(b); return err }

func (ServiceStatus) GormDataType() string { return "string" }

// ---- Waitlist ----

// WaitlistStatus tracks a walk-in party waiting for a table.
type WaitlistStatus uint8

const (
	WaitlistWaiting WaitlistStatus = iota + 1
	WaitlistNotified
	WaitlistSeated
	WaitlistCancelled
	WaitlistNoShow
)

var waitlistVocab = newVocabulary("waitlist status",
	map[WaitlistStatus]string{
		WaitlistWaiting:   "Waiting",
		WaitlistNotified:  "Notified",
		WaitlistSeated:    "Seated",
		WaitlistCancelled: "Cancelled",
		WaitlistNoShow:    "No Show",
	},
	map[WaitlistStatus]string{
		WaitlistWaiting:   "waiting",
		WaitlistNotified:  "notified",
		WaitlistSeated:    "seated",
		WaitlistCancelled: "cancelled",
		WaitlistNoShow:    "no_show",
	},
	// Rows written by the legacy task-board integration.
	map[string]WaitlistStatus{
		"Todo":        WaitlistWaiting,
		"In progress": WaitlistNotified,
		"Done":        WaitlistSeated,
		"no-show":     WaitlistNoShow,
	},
)

func ParseWaitlistStatus(s string) (WaitlistStatus, error) { return waitlistVocab.lookup(s) }

func (s WaitlistStatus) String() string { return waitlistVocab.internalName(s) }

func (s WaitlistStatus) Stored() string { n, _ := waitlistVocab.storedName(s); return n }

func (s WaitlistStatus) Valid() bool { _, ok := waitlistVocab.stored[s]; return ok }

// Active reports whether the entry still holds a place in the queue.
func (s WaitlistStatus) Active() bool { return s == WaitlistWaiting || s == WaitlistNotified }

func (s WaitlistStatus) Value() (driver.Value, error) { return waitlistVocab.storedName(s) }

func (s *WaitlistStatus) Scan(src any) (err error) { *s, err = waitlistVocab.scan(src); return err }

func (s WaitlistStatus) MarshalJSON() ([]byte, error) { return waitlistVocab.marshal(s) }

func (s *WaitlistStatus) UnmarshalJSON(b []byte) (err error) { *s, err = waitlistVocab.unmarshal(b); return err }

func (WaitlistStatus) GormDataType() string { return "string" }

// StoredNames converts statuses to their persisted names for IN (...) filters.
func StoredNames[S interface{ Stored() string }](ss ...S) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Stored())
	}
	return out
}
