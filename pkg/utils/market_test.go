package utils

import (
	"testing"
	"time"

	"spread-trader/internal/models"
)

func istTime(t *testing.T, weekday time.Weekday, hour, minute int) time.Time {
	t.Helper()
	// Anchor on a known Monday and shift to the requested weekday.
	base := time.Date(2025, 11, 3, hour, minute, 0, 0, IndiaLocation)
	return base.AddDate(0, 0, int(weekday-time.Monday))
}

func TestMarketStatusAt(t *testing.T) {
	tests := []struct {
		name    string
		weekday time.Weekday
		hour    int
		minute  int
		want    models.MarketStatus
	}{
		{"before pre-open", time.Monday, 8, 30, models.MarketClosed},
		{"pre-open", time.Monday, 9, 5, models.MarketPreOpen},
		{"open at bell", time.Monday, 9, 15, models.MarketOpen},
		{"midday", time.Wednesday, 12, 0, models.MarketOpen},
		{"mis square-off warning", time.Thursday, 15, 5, models.MarketMISSquareOffWarn},
		{"after warning window", time.Thursday, 15, 20, models.MarketOpen},
		{"after close", time.Friday, 15, 30, models.MarketClosed},
		{"evening", time.Friday, 18, 0, models.MarketClosed},
		{"saturday", time.Saturday, 12, 0, models.MarketClosed},
		{"sunday", time.Sunday, 12, 0, models.MarketClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := istTime(t, tt.weekday, tt.hour, tt.minute)
			if got := MarketStatusAt(at); got != tt.want {
				t.Errorf("MarketStatusAt(%s %02d:%02d) = %s, want %s",
					tt.weekday, tt.hour, tt.minute, got, tt.want)
			}
		})
	}
}

func TestGetNextMarketOpenSkipsWeekends(t *testing.T) {
	next := GetNextMarketOpen()
	if next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		t.Errorf("next open on a weekend: %s", next)
	}
	if next.Hour() != 9 || next.Minute() != 15 {
		t.Errorf("next open at %02d:%02d, want 09:15", next.Hour(), next.Minute())
	}
	if !next.After(time.Now().In(IndiaLocation).Add(-time.Minute)) {
		t.Errorf("next open in the past: %s", next)
	}
}
