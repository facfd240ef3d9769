// Package floor holds the pure decision logic of the host stand: table state
// rules, slot availability math, table-combination search, and wait-time
// estimation. Nothing here touches the store; callers pass in snapshots.
package floor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tbourn/hoststand/internal/domain"
)

// ErrIllegalTransition is returned when a table cannot move between two states.
var ErrIllegalTransition = errors.New("illegal table transition")

// allowedFrom lists, per target status, the statuses a table may leave to
// reach it. Occupied never follows Being Cleaned: cleaning must finish first.
var allowedFrom = map[domain.TableStatus][]domain.TableStatus{
	domain.TableOccupied:     {domain.TableAvailable, domain.TableReserved},
	domain.TableBeingCleaned: {domain.TableOccupied},
	domain.TableAvailable:    {domain.TableBeingCleaned, domain.TableReserved},
	domain.TableReserved:     {domain.TableAvailable},
}

// AllowedFrom returns the prior statuses a transition into to accepts. The
// result is the expected-status set used for compare-and-set writes.
func AllowedFrom(to domain.TableStatus) []domain.TableStatus {
	src := allowedFrom[to]
	out := make([]domain.TableStatus, len(src))
	copy(out, src)
	return out
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to domain.TableStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition with an error naming both states.
func CheckTransition(number int, from, to domain.TableStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: table %d to %v", ErrIllegalTransition, number, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: table %d is %s, cannot become %s", ErrIllegalTransition, number, from.Stored(), to.Stored())
	}
	return nil
}

// FreeTables returns active, available tables ordered by table number.
// Reserved tables held for heldFor (a Reservation.ID) are included as well,
// so a party can be seated at the table kept for it.
func FreeTables(tables []domain.Table, heldFor string) []domain.Table {
	out := make([]domain.Table, 0, len(tables))
	for _, t := range tables {
		if !t.IsActive || t.Capacity <= 0 {
			continue
		}
		switch t.Status {
		case domain.TableAvailable:
			out = append(out, t)
		case domain.TableReserved:
			if heldFor != "" && t.HeldForReservationID != nil && *t.HeldForReservationID == heldFor {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// TotalCapacity sums the seats of active tables.
func TotalCapacity(tables []domain.Table) int {
	n := 0
	for _, t := range tables {
		if t.IsActive {
			n += t.Capacity
		}
	}
	return n
}

// FloorCounts summarizes active tables by status.
type FloorCounts struct {
	Tables        int `json:"total_tables"`
	Capacity      int `json:"total_capacity"`
	Available     int `json:"available"`
	Occupied      int `json:"occupied"`
	BeingCleaned  int `json:"being_cleaned"`
	Reserved      int `json:"reserved"`
	OccupiedSeats int `json:"occupied_seats"`
}

// CountTables builds FloorCounts from a table snapshot.
func CountTables(tables []domain.Table) FloorCounts {
	var c FloorCounts
	for _, t := range tables {
		if !t.IsActive {
			continue
		}
		c.Tables++
		c.Capacity += t.Capacity
		switch t.Status {
		case domain.TableAvailable:
			c.Available++
		case domain.TableOccupied:
			c.Occupied++
			c.OccupiedSeats += t.Capacity
		case domain.TableBeingCleaned:
			c.BeingCleaned++
		case domain.TableReserved:
			c.Reserved++
		}
	}
	return c
}

// OccupancyPercent is the rounded share of seats at occupied tables.
func (c FloorCounts) OccupancyPercent() int {
	if c.Capacity == 0 {
		return 0
	}
	return (c.OccupiedSeats*100 + c.Capacity/2) / c.Capacity
}
