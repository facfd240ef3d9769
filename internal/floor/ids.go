package floor

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// ReservationCode returns an externally visible reservation id,
// RES-YYYYMMDD-NNNN. Collisions are possible; callers retry on a taken code.
func ReservationCode(now time.Time) string { return dateCode("RES", now) }

// ServiceCode returns a service record id, SVC-YYYYMMDD-NNNN.
func ServiceCode(now time.Time) string { return dateCode("SVC", now) }

// WaitlistCode returns WAIT-YYYYMMDD-<unix millis>.
func WaitlistCode(now time.Time) string {
	return fmt.Sprintf("WAIT-%s-%d", now.Format("20060102"), now.UnixMilli())
}

func dateCode(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("20060102"), rand.IntN(10000))
}
