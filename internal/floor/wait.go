package floor

const (
	minutesPerPartyAhead = 15
	largePartyExtra      = 10 // party of 6 or more
	mediumPartyExtra     = 5  // party of 4 or 5
	minimumWait          = 10
)

// EstimateWait returns the quoted wait in minutes for a party of partySize
// with ahead parties (waiting or notified) already in the queue. The result
// is rounded up to a multiple of 5 and never below 10.
func EstimateWait(partySize, ahead int) int {
	if ahead < 0 {
		ahead = 0
	}
	m := minutesPerPartyAhead * ahead
	switch {
	case partySize >= 6:
		m += largePartyExtra
	case partySize >= 4:
		m += mediumPartyExtra
	}
	m = (m + 4) / 5 * 5
	if m < minimumWait {
		m = minimumWait
	}
	return m
}
