package subscriptions

import (
	"testing"
	"time"
)

func TestProratedUpgradeChargeMidCycle(t *testing.T) {
	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	// 31-day period, 16 whole days remaining: ceil(1500*16/31) = 775.
	got := ProratedUpgradeCharge(1000, 2500, periodStart, periodEnd, now)
	if got != 775 {
		t.Fatalf("expected 775, got %d", got)
	}
}

func TestProratedUpgradeChargeFullPeriod(t *testing.T) {
	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	got := ProratedUpgradeCharge(1000, 2500, periodStart, periodEnd, periodStart)
	if got != 1500 {
		t.Fatalf("expected full difference 1500, got %d", got)
	}
}

func TestProratedUpgradeChargePartialDayRoundsUp(t *testing.T) {
	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC)

	// 15.5 days remaining count as 16 whole days.
	got := ProratedUpgradeCharge(1000, 2500, periodStart, periodEnd, now)
	if got != 775 {
		t.Fatalf("expected 775, got %d", got)
	}
}

func TestProratedUpgradeChargeNoIncrease(t *testing.T) {
	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	if got := ProratedUpgradeCharge(2500, 2500, periodStart, periodEnd, now); got != 0 {
		t.Fatalf("expected 0 for lateral move, got %d", got)
	}
	if got := ProratedUpgradeCharge(2500, 1000, periodStart, periodEnd, now); got != 0 {
		t.Fatalf("expected 0 for downgrade, got %d", got)
	}
}

func TestProratedUpgradeChargeLapsedPeriod(t *testing.T) {
	periodStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	if got := ProratedUpgradeCharge(1000, 2500, periodStart, periodEnd, now); got != 0 {
		t.Fatalf("expected 0 after period end, got %d", got)
	}
}
