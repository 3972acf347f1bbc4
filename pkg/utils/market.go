package utils

import (
	"strings"
	"time"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// Exchange timezones, resolved once at startup.
var (
	HongKongLocation *time.Location
	ShanghaiLocation *time.Location
	NewYorkLocation  *time.Location
)

func init() {
	HongKongLocation = loadLocation("Asia/Hong_Kong", 8*60*60)
	ShanghaiLocation = loadLocation("Asia/Shanghai", 8*60*60)
	NewYorkLocation = loadLocation("America/New_York", -5*60*60)
}

func loadLocation(name string, offsetSeconds int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, offsetSeconds)
	}
	return loc
}

// DetectMarket infers the market from the ticker format: five digits is
// Hong Kong, six digits is mainland China, anything else is treated as US.
func DetectMarket(symbol string) models.Market {
	s := strings.TrimSpace(symbol)
	if isDigits(s) {
		switch len(s) {
		case 5:
			return models.MarketHK
		case 6:
			return models.MarketCN
		}
	}
	return models.MarketUS
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MarketLocation returns the exchange timezone for a market.
func MarketLocation(market models.Market) *time.Location {
	switch market {
	case models.MarketHK:
		return HongKongLocation
	case models.MarketCN:
		return ShanghaiLocation
	default:
		return NewYorkLocation
	}
}

// GetMarketStatus returns the current session status for a market.
func GetMarketStatus(market models.Market) models.MarketStatus {
	return MarketStatusAt(market, time.Now())
}

// MarketStatusAt returns the session status for a market at a given time.
func MarketStatusAt(market models.Market, at time.Time) models.MarketStatus {
	now := at.In(MarketLocation(market))

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return models.MarketClosed
	}

	minutes := now.Hour()*60 + now.Minute()

	switch market {
	case models.MarketHK:
		// Pre-open 9:00, morning 9:30-12:00, lunch, afternoon 13:00-16:00
		switch {
		case minutes >= 540 && minutes < 570:
			return models.MarketPreOpen
		case minutes >= 570 && minutes < 720:
			return models.MarketOpen
		case minutes >= 720 && minutes < 780:
			return models.MarketLunchBreak
		case minutes >= 780 && minutes < 960:
			return models.MarketOpen
		}
	case models.MarketCN:
		// Pre-open 9:15, morning 9:30-11:30, lunch, afternoon 13:00-15:00
		switch {
		case minutes >= 555 && minutes < 570:
			return models.MarketPreOpen
		case minutes >= 570 && minutes < 690:
			return models.MarketOpen
		case minutes >= 690 && minutes < 780:
			return models.MarketLunchBreak
		case minutes >= 780 && minutes < 900:
			return models.MarketOpen
		}
	default:
		// US regular session 9:30-16:00 ET, pre-market from 4:00
		switch {
		case minutes >= 240 && minutes < 570:
			return models.MarketPreOpen
		case minutes >= 570 && minutes < 960:
			return models.MarketOpen
		}
	}

	return models.MarketClosed
}

// IsMarketOpen returns true if the market is in a tradeable session.
func IsMarketOpen(market models.Market) bool {
	return GetMarketStatus(market) == models.MarketOpen
}

// NextMarketOpen returns the next regular session open for a market.
func NextMarketOpen(market models.Market) time.Time {
	loc := MarketLocation(market)
	now := time.Now().In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, loc)

	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// MarketClose returns today's regular session close for a market.
func MarketClose(market models.Market) time.Time {
	loc := MarketLocation(market)
	now := time.Now().In(loc)

	closeHour := 16
	if market == models.MarketCN {
		closeHour = 15
	}
	return time.Date(now.Year(), now.Month(), now.Day(), closeHour, 0, 0, 0, loc)
}

// TimeUntilMarketClose returns the duration until the market closes.
func TimeUntilMarketClose(market models.Market) time.Duration {
	return time.Until(MarketClose(market))
}
