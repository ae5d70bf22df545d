package subscriptions

import (
	"time"
)

const day = 24 * time.Hour

// ProratedUpgradeCharge computes the amount due when moving to a more
// expensive plan mid-cycle. The difference between the two cycle prices is
// scaled by the whole days remaining in the current period, rounding up so
// partial days always bill.
func ProratedUpgradeCharge(currentPrice, newPrice int64, periodStart, periodEnd, now time.Time) int64 {
	diff := newPrice - currentPrice
	if diff <= 0 {
		return 0
	}

	totalDays := ceilDays(periodEnd.Sub(periodStart))
	remainingDays := ceilDays(periodEnd.Sub(now))
	if totalDays <= 0 {
		return diff
	}
	if remainingDays <= 0 {
		return 0
	}
	if remainingDays > totalDays {
		remainingDays = totalDays
	}

	return ceilDiv(diff*remainingDays, totalDays)
}

func ceilDays(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + day - 1) / day)
}

// ceilDiv rounds the quotient up. Both arguments are expected non-negative.
func ceilDiv(numerator, denominator int64) int64 {
	if denominator == 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}
