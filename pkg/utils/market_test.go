package utils

import (
	"testing"
	"time"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

func TestDetectMarket(t *testing.T) {
	tests := []struct {
		symbol string
		want   models.Market
	}{
		{"AAPL", models.MarketUS},
		{"aapl", models.MarketUS},
		{"BRK.B", models.MarketUS},
		{"00700", models.MarketHK},
		{" 00700 ", models.MarketHK},
		{"600519", models.MarketCN},
		{"000001", models.MarketCN},
		{"700", models.MarketUS},
		{"1234567", models.MarketUS},
		{"", models.MarketUS},
	}
	for _, tt := range tests {
		if got := DetectMarket(tt.symbol); got != tt.want {
			t.Errorf("DetectMarket(%q) = %s, want %s", tt.symbol, got, tt.want)
		}
	}
}

func TestMarketLocation(t *testing.T) {
	if MarketLocation(models.MarketHK) != HongKongLocation {
		t.Error("HK should map to the Hong Kong timezone")
	}
	if MarketLocation(models.MarketCN) != ShanghaiLocation {
		t.Error("CN should map to the Shanghai timezone")
	}
	if MarketLocation(models.MarketUS) != NewYorkLocation {
		t.Error("US should map to the New York timezone")
	}
}

// June 2, 2025 is a Monday.
func TestMarketStatusAt(t *testing.T) {
	hk := func(hour, min int) time.Time {
		return time.Date(2025, 6, 2, hour, min, 0, 0, HongKongLocation)
	}
	cn := func(hour, min int) time.Time {
		return time.Date(2025, 6, 2, hour, min, 0, 0, ShanghaiLocation)
	}
	us := func(hour, min int) time.Time {
		return time.Date(2025, 6, 2, hour, min, 0, 0, NewYorkLocation)
	}

	tests := []struct {
		name   string
		market models.Market
		at     time.Time
		want   models.MarketStatus
	}{
		{"HK pre-open", models.MarketHK, hk(9, 15), models.MarketPreOpen},
		{"HK morning session", models.MarketHK, hk(10, 0), models.MarketOpen},
		{"HK lunch", models.MarketHK, hk(12, 30), models.MarketLunchBreak},
		{"HK afternoon session", models.MarketHK, hk(14, 0), models.MarketOpen},
		{"HK after close", models.MarketHK, hk(16, 30), models.MarketClosed},
		{"CN pre-open", models.MarketCN, cn(9, 20), models.MarketPreOpen},
		{"CN morning session", models.MarketCN, cn(10, 0), models.MarketOpen},
		{"CN lunch", models.MarketCN, cn(12, 0), models.MarketLunchBreak},
		{"CN afternoon session", models.MarketCN, cn(14, 30), models.MarketOpen},
		{"CN after close", models.MarketCN, cn(15, 30), models.MarketClosed},
		{"US pre-market", models.MarketUS, us(5, 0), models.MarketPreOpen},
		{"US regular session", models.MarketUS, us(10, 0), models.MarketOpen},
		{"US last minute", models.MarketUS, us(15, 59), models.MarketOpen},
		{"US after close", models.MarketUS, us(16, 0), models.MarketClosed},
		{"US overnight", models.MarketUS, us(2, 0), models.MarketClosed},
		{"US Saturday", models.MarketUS, time.Date(2025, 6, 7, 10, 0, 0, 0, NewYorkLocation), models.MarketClosed},
		{"HK Sunday", models.MarketHK, time.Date(2025, 6, 8, 10, 0, 0, 0, HongKongLocation), models.MarketClosed},
	}

	for _, tt := range tests {
		if got := MarketStatusAt(tt.market, tt.at); got != tt.want {
			t.Errorf("%s: MarketStatusAt = %s, want %s", tt.name, got, tt.want)
		}
	}
}

// A time expressed in another zone still resolves against the exchange
// local clock.
func TestMarketStatusAtConvertsZones(t *testing.T) {
	// 02:00 UTC on a Monday is 10:00 in Hong Kong.
	at := time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC)
	if got := MarketStatusAt(models.MarketHK, at); got != models.MarketOpen {
		t.Errorf("MarketStatusAt = %s, want OPEN", got)
	}
}
