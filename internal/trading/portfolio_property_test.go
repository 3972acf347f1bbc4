package trading

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Closing a long round trip returns all capital plus exactly the realized
// gain, and leaves no residual lot state.
func TestProperty_LongRoundTripConservesCash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Buy then sell all restores cash plus realized P&L", prop.ForAll(
		func(qty int, buyPrice, sellPrice float64) bool {
			const initialCash = 1000000.0
			p := NewPortfolio(initialCash, 0)

			p.ApplyLongBuy("AAPL", qty, buyPrice)
			realized := p.ApplyLongSell("AAPL", qty, sellPrice)

			wantRealized := (sellPrice - buyPrice) * float64(qty)
			wantCash := initialCash + wantRealized

			return math.Abs(realized-wantRealized) < 1e-6 &&
				math.Abs(p.Cash()-wantCash) < 1e-6 &&
				p.Position("AAPL").Long == 0
		},
		gen.IntRange(1, 1000),
		gen.Float64Range(1, 2000),
		gen.Float64Range(1, 2000),
	))

	properties.TestingRun(t)
}

// Closing a short round trip releases every reserved margin dollar and
// nets out to the realized gain.
func TestProperty_ShortRoundTripReleasesAllMargin(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Short then cover all restores cash plus realized P&L", prop.ForAll(
		func(qty int, entryPrice, coverPrice, margin float64) bool {
			const initialCash = 1000000.0
			p := NewPortfolio(initialCash, margin)

			p.ApplyShortOpen("TSLA", qty, entryPrice)
			realized := p.ApplyShortCover("TSLA", qty, coverPrice)

			wantRealized := (entryPrice - coverPrice) * float64(qty)
			wantCash := initialCash + wantRealized

			return math.Abs(realized-wantRealized) < 1e-6 &&
				math.Abs(p.Cash()-wantCash) < 1e-6 &&
				math.Abs(p.MarginUsed()) < 1e-9 &&
				p.Position("TSLA").Short == 0
		},
		gen.IntRange(1, 1000),
		gen.Float64Range(1, 2000),
		gen.Float64Range(1, 2000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// Sells are clamped to the held quantity, so a lot can never go negative.
func TestProperty_SellsClampToHeldQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Long lot never goes below zero", prop.ForAll(
		func(buyQty, sellQty int, price float64) bool {
			p := NewPortfolio(1000000, 0)
			p.ApplyLongBuy("AAPL", buyQty, price)
			p.ApplyLongSell("AAPL", sellQty, price)

			remaining := buyQty - sellQty
			if remaining < 0 {
				remaining = 0
			}
			return p.Position("AAPL").Long == remaining
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 1000),
		gen.Float64Range(1, 1000),
	))

	properties.TestingRun(t)
}

// Opening a position at current market prices does not change net worth:
// the value moved out of cash sits in the position (and reserved margin).
func TestProperty_OpeningAtMarketPreservesNetLiquidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Net liquidation is invariant under fills at the mark", prop.ForAll(
		func(longQty, shortQty int, price, margin float64) bool {
			const initialCash = 1000000.0
			p := NewPortfolio(initialCash, margin)

			p.ApplyLongBuy("AAPL", longQty, price)
			p.ApplyShortOpen("TSLA", shortQty, price)

			prices := map[string]float64{"AAPL": price, "TSLA": price}
			return math.Abs(p.NetLiquidation(prices)-initialCash) < 1e-6
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 500),
		gen.Float64Range(1, 2000),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
