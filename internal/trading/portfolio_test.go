package trading

import (
	"math"
	"testing"
)

const priceTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < priceTolerance
}

func TestApplyLongBuyAveragesCost(t *testing.T) {
	p := NewPortfolio(10000, 0)

	p.ApplyLongBuy("AAPL", 10, 100)
	p.ApplyLongBuy("AAPL", 10, 200)

	pos := p.Position("AAPL")
	if pos.Long != 20 {
		t.Errorf("Long = %d, want 20", pos.Long)
	}
	if !almostEqual(pos.LongCostBasis, 150) {
		t.Errorf("LongCostBasis = %v, want 150", pos.LongCostBasis)
	}
	if !almostEqual(p.Cash(), 10000-1000-2000) {
		t.Errorf("Cash = %v, want 7000", p.Cash())
	}
}

func TestApplyLongSellRealizesGain(t *testing.T) {
	p := NewPortfolio(10000, 0)
	p.ApplyLongBuy("AAPL", 10, 100)

	realized := p.ApplyLongSell("AAPL", 5, 120)

	if !almostEqual(realized, 100) {
		t.Errorf("Realized = %v, want 100", realized)
	}
	pos := p.Position("AAPL")
	if pos.Long != 5 {
		t.Errorf("Long = %d, want 5", pos.Long)
	}
	if !almostEqual(pos.LongCostBasis, 100) {
		t.Errorf("LongCostBasis should be unchanged by a partial sell, got %v", pos.LongCostBasis)
	}
	if !almostEqual(p.Cash(), 10000-1000+600) {
		t.Errorf("Cash = %v, want 9600", p.Cash())
	}
	if !almostEqual(p.Gains("AAPL").Long, 100) {
		t.Errorf("Long gains = %v, want 100", p.Gains("AAPL").Long)
	}
}

func TestApplyLongSellClampsToHeld(t *testing.T) {
	p := NewPortfolio(10000, 0)
	p.ApplyLongBuy("AAPL", 10, 100)

	realized := p.ApplyLongSell("AAPL", 25, 110)

	if !almostEqual(realized, 100) {
		t.Errorf("Realized = %v, want 100 for the 10 shares actually held", realized)
	}
	pos := p.Position("AAPL")
	if pos.Long != 0 {
		t.Errorf("Long = %d, want 0", pos.Long)
	}
	if pos.LongCostBasis != 0 {
		t.Errorf("Cost basis should reset when the lot closes, got %v", pos.LongCostBasis)
	}
	if !almostEqual(p.Cash(), 10000-1000+1100) {
		t.Errorf("Cash = %v, want 10100", p.Cash())
	}
}

func TestApplyLongSellWithNothingHeld(t *testing.T) {
	p := NewPortfolio(10000, 0)

	realized := p.ApplyLongSell("AAPL", 10, 100)

	if realized != 0 {
		t.Errorf("Realized = %v, want 0", realized)
	}
	if !almostEqual(p.Cash(), 10000) {
		t.Errorf("Cash should be untouched, got %v", p.Cash())
	}
}

func TestApplyShortOpenReservesMargin(t *testing.T) {
	p := NewPortfolio(10000, 0.5)

	p.ApplyShortOpen("TSLA", 10, 100)

	pos := p.Position("TSLA")
	if pos.Short != 10 {
		t.Errorf("Short = %d, want 10", pos.Short)
	}
	if !almostEqual(pos.ShortCostBasis, 100) {
		t.Errorf("ShortCostBasis = %v, want 100", pos.ShortCostBasis)
	}
	if !almostEqual(pos.ShortMarginUsed, 500) {
		t.Errorf("ShortMarginUsed = %v, want 500", pos.ShortMarginUsed)
	}
	if !almostEqual(p.MarginUsed(), 500) {
		t.Errorf("MarginUsed = %v, want 500", p.MarginUsed())
	}
	// Proceeds of 1000 minus 500 reserved.
	if !almostEqual(p.Cash(), 10500) {
		t.Errorf("Cash = %v, want 10500", p.Cash())
	}
}

func TestApplyShortCoverReleasesMarginAndRealizes(t *testing.T) {
	p := NewPortfolio(10000, 0.5)
	p.ApplyShortOpen("TSLA", 10, 100)

	realized := p.ApplyShortCover("TSLA", 10, 80)

	if !almostEqual(realized, 200) {
		t.Errorf("Realized = %v, want 200", realized)
	}
	pos := p.Position("TSLA")
	if pos.Short != 0 {
		t.Errorf("Short = %d, want 0", pos.Short)
	}
	if pos.ShortCostBasis != 0 {
		t.Errorf("ShortCostBasis should reset, got %v", pos.ShortCostBasis)
	}
	if !almostEqual(p.MarginUsed(), 0) {
		t.Errorf("MarginUsed = %v, want 0", p.MarginUsed())
	}
	// Round trip: initial cash plus the realized gain.
	if !almostEqual(p.Cash(), 10200) {
		t.Errorf("Cash = %v, want 10200", p.Cash())
	}
}

func TestApplyShortCoverPartialReleasesProportionalMargin(t *testing.T) {
	p := NewPortfolio(10000, 0.5)
	p.ApplyShortOpen("TSLA", 10, 100)

	p.ApplyShortCover("TSLA", 4, 90)

	pos := p.Position("TSLA")
	if pos.Short != 6 {
		t.Errorf("Short = %d, want 6", pos.Short)
	}
	if !almostEqual(pos.ShortMarginUsed, 300) {
		t.Errorf("ShortMarginUsed = %v, want 300", pos.ShortMarginUsed)
	}
	if !almostEqual(p.MarginUsed(), 300) {
		t.Errorf("MarginUsed = %v, want 300", p.MarginUsed())
	}
}

func TestApplyShortCoverClampsToOpenShort(t *testing.T) {
	p := NewPortfolio(10000, 0.5)
	p.ApplyShortOpen("TSLA", 5, 100)

	realized := p.ApplyShortCover("TSLA", 50, 90)

	if !almostEqual(realized, 50) {
		t.Errorf("Realized = %v, want 50 for the 5 shares actually short", realized)
	}
	if p.Position("TSLA").Short != 0 {
		t.Errorf("Short = %d, want 0", p.Position("TSLA").Short)
	}
}

func TestShortCoverWithNothingOpen(t *testing.T) {
	p := NewPortfolio(10000, 0.5)

	if realized := p.ApplyShortCover("TSLA", 10, 90); realized != 0 {
		t.Errorf("Realized = %v, want 0", realized)
	}
	if !almostEqual(p.Cash(), 10000) {
		t.Errorf("Cash should be untouched, got %v", p.Cash())
	}
}

func TestZeroMarginRequirementSkipsReserve(t *testing.T) {
	p := NewPortfolio(10000, 0)

	p.ApplyShortOpen("TSLA", 10, 100)

	if !almostEqual(p.MarginUsed(), 0) {
		t.Errorf("MarginUsed = %v, want 0", p.MarginUsed())
	}
	if !almostEqual(p.Cash(), 11000) {
		t.Errorf("Cash = %v, want 11000 with full proceeds credited", p.Cash())
	}
}

func TestNetLiquidation(t *testing.T) {
	p := NewPortfolio(10000, 0.5)
	p.ApplyLongBuy("AAPL", 10, 100)  // cash 9000
	p.ApplyShortOpen("TSLA", 5, 200) // proceeds 1000, margin 500, cash 9500

	prices := map[string]float64{"AAPL": 110, "TSLA": 180}

	// cash 9500 + margin 500 + long 10*110 - short 5*180 = 10200
	got := p.NetLiquidation(prices)
	if !almostEqual(got, 10200) {
		t.Errorf("NetLiquidation = %v, want 10200", got)
	}
}

func TestTickersSorted(t *testing.T) {
	p := NewPortfolio(10000, 0)
	p.ApplyLongBuy("MSFT", 1, 100)
	p.ApplyLongBuy("AAPL", 1, 100)
	p.ApplyLongBuy("GOOG", 1, 100)

	tickers := p.Tickers()
	want := []string{"AAPL", "GOOG", "MSFT"}
	if len(tickers) != len(want) {
		t.Fatalf("Tickers = %v, want %v", tickers, want)
	}
	for i := range want {
		if tickers[i] != want[i] {
			t.Fatalf("Tickers = %v, want %v", tickers, want)
		}
	}
}

func TestPositionReturnsCopy(t *testing.T) {
	p := NewPortfolio(10000, 0)
	p.ApplyLongBuy("AAPL", 10, 100)

	pos := p.Position("AAPL")
	pos.Long = 999

	if p.Position("AAPL").Long != 10 {
		t.Error("Mutating the returned position should not affect portfolio state")
	}
}

func TestSetCashOverridesBalance(t *testing.T) {
	p := NewPortfolio(10000, 0)
	p.ApplyLongBuy("AAPL", 10, 100)

	p.SetCash(42000)

	if !almostEqual(p.Cash(), 42000) {
		t.Errorf("Cash = %v, want 42000", p.Cash())
	}
}
