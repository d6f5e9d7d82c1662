package sender

import (
	"math"
	"time"
)

// Backoff returns the delay before the next attempt after n failed ones:
// initial × multiplier^n. With the defaults (5 s, ×3) a message is retried
// at 5 s, 15 s, 45 s, and so on until the attempt cap.
func Backoff(initial time.Duration, multiplier float64, attempts int) time.Duration {
	if attempts <= 0 {
		return initial
	}
	return time.Duration(float64(initial) * math.Pow(multiplier, float64(attempts)))
}
