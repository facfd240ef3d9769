package floor

import (
	"fmt"
	"sort"
	"time"
)

// Clock is a time of day in minutes since midnight. Values past 24h are
// allowed so a late seating's window can run beyond midnight.
type Clock int

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf returns the wall-clock minute of t in t's location.
func ClockOf(t time.Time) Clock { return Clock(t.Hour()*60 + t.Minute()) }

func (c Clock) String() string {
	m := int(c) % (24 * 60)
	if m < 0 {
		m += 24 * 60
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Add shifts the clock by d, truncated to whole minutes.
func (c Clock) Add(d time.Duration) Clock { return c + Clock(d/time.Minute) }

// DurationPolicy decides how long a party is expected to stay.
type DurationPolicy struct {
	// Fixed is the average dining duration; used when ByPartySize is false.
	Fixed time.Duration
	// ByPartySize switches to the tiered table: <=2 90m, <=4 120m, <=6 135m, else 150m.
	ByPartySize bool
}

// For returns the expected stay for a party of n.
func (p DurationPolicy) For(n int) time.Duration {
	if !p.ByPartySize {
		if p.Fixed > 0 {
			return p.Fixed
		}
		return 90 * time.Minute
	}
	switch {
	case n <= 2:
		return 90 * time.Minute
	case n <= 4:
		return 120 * time.Minute
	case n <= 6:
		return 135 * time.Minute
	default:
		return 150 * time.Minute
	}
}

// Booking is the part of a reservation the calculator needs.
type Booking struct {
	Start     Clock
	PartySize int
}

// SlotResult is the outcome of checking one slot. It is always well formed,
// also when the slot is unavailable.
type SlotResult struct {
	Time                     string `json:"time"`
	Available                bool   `json:"available"`
	OccupiedSeats            int    `json:"occupied_seats"`
	AvailableSeats           int    `json:"available_seats"`
	LiveOccupiedSeats        int    `json:"live_occupied_seats"`
	TotalCapacity            int    `json:"total_capacity"`
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes"`
	Reason                   string `json:"reason,omitempty"`
}

// Window is the span in which parties may be seated; a seating must also end
// by Close.
type Window struct {
	Open  Clock
	Close Clock
}

// Calculator computes slot occupancy against booked reservations.
type Calculator struct {
	Duration DurationPolicy
	// Sample is the sampling step across a party's stay (default 15m).
	Sample time.Duration
}

func (c Calculator) sampleStep() Clock {
	if c.Sample <= 0 {
		return 15
	}
	return Clock(c.Sample / time.Minute)
}

// occupancyAt sums the party sizes of bookings overlapping [from, to).
func (c Calculator) occupancyAt(from, to Clock, bookings []Booking) int {
	seats := 0
	for _, b := range bookings {
		end := b.Start.Add(c.Duration.For(b.PartySize))
		if b.Start < to && from < end {
			seats += b.PartySize
		}
	}
	return seats
}

// CheckSlot reports whether a party of partySize fits at start, given the
// bookings on that date, the total seat capacity, and liveSeats currently
// occupied by parties that will still be seated at start.
//
// Effective capacity is totalCapacity - liveSeats. The party fits when the
// peak booked occupancy over its whole stay plus partySize does not exceed
// effective capacity; with zero effective capacity nothing fits.
func (c Calculator) CheckSlot(start Clock, partySize int, bookings []Booking, totalCapacity, liveSeats int) SlotResult {
	dur := c.Duration.For(partySize)
	end := start.Add(dur)
	step := c.sampleStep()

	peak := 0
	for t := start; t < end; t += step {
		to := t + step
		if to > end {
			to = end
		}
		if occ := c.occupancyAt(t, to, bookings); occ > peak {
			peak = occ
		}
	}

	if liveSeats < 0 {
		liveSeats = 0
	}
	effective := totalCapacity - liveSeats
	if effective < 0 {
		effective = 0
	}
	free := effective - peak
	if free < 0 {
		free = 0
	}

	res := SlotResult{
		Time:                     start.String(),
		OccupiedSeats:            peak + liveSeats,
		AvailableSeats:           free,
		LiveOccupiedSeats:        liveSeats,
		TotalCapacity:            totalCapacity,
		EstimatedDurationMinutes: int(dur / time.Minute),
	}
	switch {
	case partySize <= 0:
		res.Reason = "party size must be at least 1"
	case effective == 0:
		res.Reason = "no seats free at this time"
	case peak+partySize > effective:
		res.Reason = fmt.Sprintf("only %d seats free at %s, party of %d", free, start, partySize)
	default:
		res.Available = true
	}
	return res
}

// SuggestTimes scans the window in step increments for slots where the party
// fits, skipping the requested start. A slot must begin at or after Open and
// the party's stay must end by Close. Results are ordered by distance from
// the requested start (earlier first on ties) and capped at limit.
//
// live returns the occupied seats to apply at a candidate slot; nil means none.
func (c Calculator) SuggestTimes(start Clock, partySize int, bookings []Booking, totalCapacity int, w Window, step time.Duration, limit int, live func(Clock) int) []SlotResult {
	if step <= 0 {
		step = 30 * time.Minute
	}
	if limit <= 0 {
		limit = 3
	}
	dur := c.Duration.For(partySize)

	type cand struct {
		dist int
		res  SlotResult
	}
	var cands []cand
	for t := w.Open; t.Add(dur) <= w.Close; t = t.Add(step) {
		if t == start {
			continue
		}
		ls := 0
		if live != nil {
			ls = live(t)
		}
		res := c.CheckSlot(t, partySize, bookings, totalCapacity, ls)
		if !res.Available {
			continue
		}
		d := int(t - start)
		if d < 0 {
			d = -d
		}
		cands = append(cands, cand{dist: d, res: res})
	}
	// Candidates are generated in time order, so a stable sort keeps the
	// earlier slot first when distances tie.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]SlotResult, len(cands))
	for i, cd := range cands {
		out[i] = cd.res
	}
	return out
}
