package risk

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// fallbackSharePrice estimates position value when an order has no price.
const fallbackSharePrice = 100.0

// Limits holds the configured risk ceilings. A non-positive ceiling
// disables its check.
type Limits struct {
	MaxPositionSize          float64
	MaxPortfolioValue        float64
	MaxDailyLoss             float64
	MaxPositionConcentration float64
	MaxTradesPerDay          int
	MinCashReserve           float64
	WarningThreshold         float64
}

// DefaultLimits returns the standard risk ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize:          100000,
		MaxPortfolioValue:        1000000,
		MaxDailyLoss:             10000,
		MaxPositionConcentration: 0.2,
		MaxTradesPerDay:          100,
		MinCashReserve:           10000,
		WarningThreshold:         0.8,
	}
}

// Verdict is the outcome of validating one order.
type Verdict struct {
	Approved bool
	Reason   string
	Level    Level
}

// Manager enforces risk limits over a trading day. All counter state is
// guarded by a single mutex; callers never mutate it directly.
type Manager struct {
	mu     sync.Mutex
	limits Limits
	logger zerolog.Logger

	dailyPnL       float64
	dailyTrades    int
	lastReset      time.Time
	circuitBreaker bool

	tradeHistory []models.TradeRecord
	riskEvents   []models.RiskEvent

	now func() time.Time
}

// NewManager creates a risk manager with the given limits.
func NewManager(limits Limits, logger zerolog.Logger) *Manager {
	if limits.WarningThreshold <= 0 || limits.WarningThreshold >= 1 {
		limits.WarningThreshold = 0.8
	}
	m := &Manager{
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
	m.lastReset = dateOf(m.now())
	return m
}

type checkResult struct {
	ok    bool
	level Level
	msg   string
}

// ValidateOrder runs every risk check against a candidate order. Any
// failing check rejects the order; the verdict carries the most severe
// level seen and all failure messages joined together.
func (m *Manager) ValidateOrder(order *models.TradeOrder, account *models.AccountInfo, positions []models.Position) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()

	if m.circuitBreaker {
		return Verdict{
			Approved: false,
			Reason:   "Circuit breaker active - trading halted",
			Level:    LevelCritical,
		}
	}

	checks := []checkResult{
		m.checkPositionSize(order),
		m.checkCashReserve(order, account),
		m.checkDailyLoss(),
		m.checkTradingFrequency(),
		m.checkConcentration(order, account, positions),
	}

	maxLevel := LevelLow
	var failed []string

	for _, c := range checks {
		maxLevel = MaxLevel(maxLevel, c.level)
		if !c.ok {
			failed = append(failed, c.msg)
		}
		if c.level.Exceeds(LevelLow) {
			m.appendEvent(order, c.msg, c.level)
		}
	}

	if len(failed) > 0 {
		reason := strings.Join(failed, "; ")
		m.logger.Warn().
			Str("symbol", order.Symbol).
			Str("risk_level", string(maxLevel)).
			Msg("Order validation failed: " + reason)
		return Verdict{Approved: false, Reason: reason, Level: maxLevel}
	}

	if maxLevel != LevelLow {
		m.logger.Info().
			Str("symbol", order.Symbol).
			Str("risk_level", string(maxLevel)).
			Msg("Order validated with elevated risk level")
	}
	return Verdict{Approved: true, Reason: "All risk checks passed", Level: maxLevel}
}

func (m *Manager) checkPositionSize(order *models.TradeOrder) checkResult {
	positionValue := order.Notional(fallbackSharePrice)

	limit := Limit{
		Name:    "Position size",
		Max:     m.limits.MaxPositionSize,
		WarnAt:  m.limits.WarningThreshold,
		Enabled: m.limits.MaxPositionSize > 0,
	}
	ok, level, msg := limit.Check(positionValue)
	return checkResult{ok: ok, level: level, msg: msg}
}

func (m *Manager) checkCashReserve(order *models.TradeOrder, account *models.AccountInfo) checkResult {
	if order.Side == models.SideSell {
		return checkResult{ok: true, level: LevelLow, msg: "Sell order - increases cash"}
	}
	if m.limits.MinCashReserve <= 0 {
		return checkResult{ok: true, level: LevelLow, msg: "Cash reserve check disabled"}
	}

	requiredCash := float64(order.Quantity) * order.Price
	remainingCash := account.Cash - requiredCash

	switch {
	case remainingCash < m.limits.MinCashReserve:
		return checkResult{
			ok:    false,
			level: LevelCritical,
			msg:   fmt.Sprintf("Insufficient cash reserve: $%.2f < $%.2f", remainingCash, m.limits.MinCashReserve),
		}
	case remainingCash < m.limits.MinCashReserve*1.5:
		return checkResult{ok: true, level: LevelMedium, msg: "Cash reserve low"}
	default:
		return checkResult{ok: true, level: LevelLow, msg: "Cash reserve OK"}
	}
}

func (m *Manager) checkDailyLoss() checkResult {
	maxLoss := m.limits.MaxDailyLoss
	if maxLoss <= 0 {
		return checkResult{ok: true, level: LevelLow, msg: "Daily loss check disabled"}
	}

	switch {
	case m.dailyPnL < -maxLoss:
		m.circuitBreaker = true
		return checkResult{
			ok:    false,
			level: LevelCritical,
			msg:   fmt.Sprintf("Daily loss limit exceeded: $%.2f", -m.dailyPnL),
		}
	case m.dailyPnL < -maxLoss*m.limits.WarningThreshold:
		return checkResult{ok: true, level: LevelHigh, msg: "Approaching daily loss limit"}
	default:
		return checkResult{ok: true, level: LevelLow, msg: "Daily P&L within limits"}
	}
}

func (m *Manager) checkTradingFrequency() checkResult {
	maxTrades := m.limits.MaxTradesPerDay
	if maxTrades <= 0 {
		return checkResult{ok: true, level: LevelLow, msg: "Trading frequency check disabled"}
	}

	switch {
	case m.dailyTrades >= maxTrades:
		return checkResult{
			ok:    false,
			level: LevelCritical,
			msg:   fmt.Sprintf("Daily trade limit reached: %d", m.dailyTrades),
		}
	case float64(m.dailyTrades) >= float64(maxTrades)*0.9:
		return checkResult{ok: true, level: LevelMedium, msg: "Approaching daily trade limit"}
	default:
		return checkResult{ok: true, level: LevelLow, msg: "Trading frequency OK"}
	}
}

func (m *Manager) checkConcentration(order *models.TradeOrder, account *models.AccountInfo, positions []models.Position) checkResult {
	limit := m.limits.MaxPositionConcentration
	if limit <= 0 {
		return checkResult{ok: true, level: LevelLow, msg: "Concentration check disabled"}
	}

	portfolioValue := account.TotalAssets
	if portfolioValue <= 0 {
		return checkResult{ok: true, level: LevelLow, msg: "No portfolio value to check"}
	}

	currentQty := 0
	currentValue := 0.0
	for _, p := range positions {
		if p.Symbol == order.Symbol {
			currentQty = p.Quantity
			currentValue = p.MarketValue
			break
		}
	}

	newQty := currentQty + order.Quantity
	if order.Side == models.SideSell {
		newQty = currentQty - order.Quantity
	}

	estimatedPrice := order.Price
	if estimatedPrice <= 0 {
		held := currentQty
		if held < 1 {
			held = 1
		}
		estimatedPrice = currentValue / float64(held)
	}

	newValue := float64(newQty) * estimatedPrice
	if newValue < 0 {
		newValue = -newValue
	}

	concentration := newValue / portfolioValue

	switch {
	case concentration > limit:
		return checkResult{
			ok:    false,
			level: LevelHigh,
			msg:   fmt.Sprintf("Position concentration %.1f%% exceeds limit %.1f%%", concentration*100, limit*100),
		}
	case concentration > limit*m.limits.WarningThreshold:
		return checkResult{ok: true, level: LevelMedium, msg: "Position concentration approaching limit"}
	default:
		return checkResult{ok: true, level: LevelLow, msg: "Position concentration OK"}
	}
}

// rollover resets daily counters when the date changes. Callers must hold
// the mutex. Safe to run twice for the same day.
func (m *Manager) rollover() {
	today := dateOf(m.now())
	if !today.After(m.lastReset) {
		return
	}

	m.logger.Info().
		Float64("previous_pnl", m.dailyPnL).
		Int("previous_trades", m.dailyTrades).
		Msg("Resetting daily risk counters")

	m.dailyPnL = 0
	m.dailyTrades = 0
	m.circuitBreaker = false
	m.lastReset = today
}

// RecordTrade records an executed trade. Call only after a real fill,
// with the actually executed quantity.
func (m *Manager) RecordTrade(order *models.TradeOrder, executedQty int, executionPrice float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyTrades++
	m.tradeHistory = append(m.tradeHistory, models.TradeRecord{
		Timestamp: m.now(),
		Symbol:    order.Symbol,
		Market:    order.Market,
		Side:      order.Side,
		Quantity:  executedQty,
		FillPrice: executionPrice,
	})
}

// UpdatePnL adjusts the daily P&L. Breaching the daily loss limit trips
// the circuit breaker.
func (m *Manager) UpdatePnL(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL += delta

	if m.limits.MaxDailyLoss > 0 && m.dailyPnL < -m.limits.MaxDailyLoss {
		m.circuitBreaker = true
		m.logger.Error().
			Float64("daily_loss", -m.dailyPnL).
			Msg("Circuit breaker activated")
	}
}

// Halted reports whether the circuit breaker is active.
func (m *Manager) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.circuitBreaker
}

// ResetCircuitBreaker manually clears the circuit breaker. Use with caution.
func (m *Manager) ResetCircuitBreaker() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Warn().Msg("Circuit breaker manually reset")
	m.circuitBreaker = false
}

// Summary is a point-in-time snapshot of risk state.
type Summary struct {
	Date                 string
	DailyPnL             float64
	DailyTrades          int
	CircuitBreakerActive bool
	TotalVolume          float64
	Limits               Limits
	RecentEvents         []models.RiskEvent
}

// GetSummary returns the current risk state snapshot.
func (m *Manager) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollover()

	totalVolume := 0.0
	for _, t := range m.tradeHistory {
		totalVolume += float64(t.Quantity) * t.FillPrice
	}

	events := m.riskEvents
	if len(events) > 10 {
		events = events[len(events)-10:]
	}
	recent := make([]models.RiskEvent, len(events))
	copy(recent, events)

	return Summary{
		Date:                 m.lastReset.Format("2006-01-02"),
		DailyPnL:             m.dailyPnL,
		DailyTrades:          m.dailyTrades,
		CircuitBreakerActive: m.circuitBreaker,
		TotalVolume:          totalVolume,
		Limits:               m.limits,
		RecentEvents:         recent,
	}
}

func (m *Manager) appendEvent(order *models.TradeOrder, message string, level Level) {
	m.riskEvents = append(m.riskEvents, models.RiskEvent{
		Timestamp: m.now(),
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		Message:   message,
		RiskLevel: string(level),
	})

	switch level {
	case LevelCritical:
		m.logger.Error().Str("symbol", order.Symbol).Msg("RISK EVENT: " + message)
	case LevelHigh:
		m.logger.Warn().Str("symbol", order.Symbol).Msg("RISK WARNING: " + message)
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
