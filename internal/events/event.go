// Package events defines the floor events the host stand emits and a
// RabbitMQ publisher for them. Consumers (a kitchen display, a pager
// service, analytics) subscribe to the queue; nothing in this process reads
// the events back.
package events

import "time"

// Event types.
const (
	TableStatusChanged  = "table.status_changed"
	PartySeated         = "party.seated"
	ServiceCompleted    = "service.completed"
	WaitlistAdded       = "waitlist.added"
	WaitlistNotified    = "waitlist.notified"
	ReservationNoShow   = "reservation.no_show"
	ReservationCanceled = "reservation.cancelled"
)

// Event is the JSON body published for every floor change. Fields that do
// not apply to a type are omitted.
type Event struct {
	Type           string    `json:"event_type"`
	TableNumber    int       `json:"table_number,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	ServiceID      string    `json:"service_id,omitempty"`
	ReservationID  string    `json:"reservation_id,omitempty"`
	WaitlistID     string    `json:"waitlist_id,omitempty"`
	PartySize      int       `json:"party_size,omitempty"`
	TableNumbers   []int     `json:"table_numbers,omitempty"`
	Source         string    `json:"source,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
