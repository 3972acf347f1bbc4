package trading

import (
	"sort"
	"sync"
)

// PortfolioPosition tracks long and short lots for one ticker.
type PortfolioPosition struct {
	Long            int
	Short           int
	LongCostBasis   float64 // average cost per long share
	ShortCostBasis  float64 // average entry price per short share
	ShortMarginUsed float64
}

// RealizedGains tracks realized profit split by lot direction.
type RealizedGains struct {
	Long  float64
	Short float64
}

// Portfolio is the decision-facing mirror of account state. It is updated
// with actually executed quantities and fill prices, never with requested
// ones, so it stays consistent with broker-reported state.
type Portfolio struct {
	mu sync.Mutex

	cash              float64
	marginRequirement float64
	marginUsed        float64
	positions         map[string]*PortfolioPosition
	realized          map[string]*RealizedGains
}

// NewPortfolio creates a portfolio mirror with starting cash. The margin
// requirement is the cash fraction reserved against short proceeds; zero
// disables margin tracking.
func NewPortfolio(initialCash, marginRequirement float64) *Portfolio {
	return &Portfolio{
		cash:              initialCash,
		marginRequirement: marginRequirement,
		positions:         make(map[string]*PortfolioPosition),
		realized:          make(map[string]*RealizedGains),
	}
}

func (p *Portfolio) position(ticker string) *PortfolioPosition {
	pos, ok := p.positions[ticker]
	if !ok {
		pos = &PortfolioPosition{}
		p.positions[ticker] = pos
	}
	return pos
}

func (p *Portfolio) gains(ticker string) *RealizedGains {
	g, ok := p.realized[ticker]
	if !ok {
		g = &RealizedGains{}
		p.realized[ticker] = g
	}
	return g
}

// ApplyLongBuy records an executed buy: cash decreases by the fill cost
// and the long cost basis is re-averaged.
func (p *Portfolio) ApplyLongBuy(ticker string, quantity int, price float64) {
	if quantity <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.position(ticker)
	oldCost := pos.LongCostBasis * float64(pos.Long)
	newCost := float64(quantity) * price
	pos.Long += quantity
	pos.LongCostBasis = (oldCost + newCost) / float64(pos.Long)
	p.cash -= newCost
}

// ApplyLongSell records an executed sell against the long lot, clamped to
// the held quantity. Returns the realized gain or loss.
func (p *Portfolio) ApplyLongSell(ticker string, quantity int, price float64) float64 {
	if quantity <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.position(ticker)
	if quantity > pos.Long {
		quantity = pos.Long
	}
	if quantity == 0 {
		return 0
	}

	realized := (price - pos.LongCostBasis) * float64(quantity)
	p.gains(ticker).Long += realized

	pos.Long -= quantity
	if pos.Long == 0 {
		pos.LongCostBasis = 0
	}
	p.cash += float64(quantity) * price
	return realized
}

// ApplyShortOpen records an executed short sale: proceeds are credited and
// the margin requirement is reserved out of cash.
func (p *Portfolio) ApplyShortOpen(ticker string, quantity int, price float64) {
	if quantity <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.position(ticker)
	proceeds := float64(quantity) * price
	margin := proceeds * p.marginRequirement

	oldBasis := pos.ShortCostBasis * float64(pos.Short)
	pos.Short += quantity
	pos.ShortCostBasis = (oldBasis + proceeds) / float64(pos.Short)
	pos.ShortMarginUsed += margin
	p.marginUsed += margin
	p.cash += proceeds - margin
}

// ApplyShortCover records an executed buy-to-cover, clamped to the open
// short quantity. Proportional margin is released. Returns the realized
// gain or loss.
func (p *Portfolio) ApplyShortCover(ticker string, quantity int, price float64) float64 {
	if quantity <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos := p.position(ticker)
	if quantity > pos.Short {
		quantity = pos.Short
	}
	if quantity == 0 {
		return 0
	}

	realized := (pos.ShortCostBasis - price) * float64(quantity)
	p.gains(ticker).Short += realized

	marginRelease := pos.ShortMarginUsed * float64(quantity) / float64(pos.Short)
	pos.ShortMarginUsed -= marginRelease
	p.marginUsed -= marginRelease

	pos.Short -= quantity
	if pos.Short == 0 {
		pos.ShortCostBasis = 0
	}

	p.cash += marginRelease - float64(quantity)*price
	return realized
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// SetCash overrides the cash balance, used when syncing from broker state.
func (p *Portfolio) SetCash(cash float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = cash
}

// MarginUsed returns the total margin reserved against open shorts.
func (p *Portfolio) MarginUsed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marginUsed
}

// Position returns a copy of the lot state for one ticker.
func (p *Portfolio) Position(ticker string) PortfolioPosition {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[ticker]
	if !ok {
		return PortfolioPosition{}
	}
	return *pos
}

// Gains returns the realized gains for one ticker.
func (p *Portfolio) Gains(ticker string) RealizedGains {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.realized[ticker]
	if !ok {
		return RealizedGains{}
	}
	return *g
}

// Tickers returns all tickers with any lot history, sorted.
func (p *Portfolio) Tickers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	tickers := make([]string, 0, len(p.positions))
	for t := range p.positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// NetLiquidation values the portfolio at the given prices: cash plus long
// market value minus the cost of buying back shorts, plus reserved margin.
func (p *Portfolio) NetLiquidation(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.cash + p.marginUsed
	for ticker, pos := range p.positions {
		price := prices[ticker]
		total += float64(pos.Long) * price
		total -= float64(pos.Short) * price
	}
	return total
}
