package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/logging"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/internal/risk"
	"github.com/ZhuOS/ai-hedge-fund/internal/store"
)

// maxFailedTrades bounds the in-memory failed-trade log.
const maxFailedTrades = 100

// ExecutorConfig holds executor policy settings.
type ExecutorConfig struct {
	DryRun             bool
	EnableShortSelling bool
	MaxOrderValue      float64       // 0 disables the per-order value cap
	CallTimeout        time.Duration // per broker call; 0 means no timeout
}

// Executor runs the validate-submit-record pipeline for one trade at a
// time. Failures never escape Execute; it always reports an executed
// quantity, zero on any failure.
type Executor struct {
	broker  broker.Broker
	risk    *risk.Manager
	journal store.DataStore // optional; nil disables persistence
	cfg     ExecutorConfig
	logger  zerolog.Logger

	executionHistory []*models.TradeResult
	failedTrades     []models.FailedTrade
	totalTrades      int
	successfulTrades int
}

// NewExecutor creates a trade executor on top of a broker and risk manager.
// The journal may be nil when persistence is not wanted.
func NewExecutor(b broker.Broker, rm *risk.Manager, journal store.DataStore, cfg ExecutorConfig, logger zerolog.Logger) *Executor {
	return &Executor{
		broker:  b,
		risk:    rm,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
	}
}

// callCtx bounds a single broker call so a stalled gateway turns into a
// failed trade instead of a hung batch.
func (e *Executor) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}

// Execute runs one decision through translation, risk validation, broker
// submission and portfolio bookkeeping. It returns the actually executed
// quantity; zero means nothing was traded, with the reason recorded in
// the failed-trade log.
func (e *Executor) Execute(ctx context.Context, ticker string, action models.Action, quantity int, currentPrice float64, portfolio *Portfolio) int {
	order := Translate(ticker, action, quantity, currentPrice)
	if order == nil {
		return 0
	}

	e.totalTrades++

	e.logger.Info().
		Str("symbol", ticker).
		Str("action", string(action)).
		Int("quantity", quantity).
		Float64("price", currentPrice).
		Msg("Executing trade")

	if ok, reason := e.validate(ctx, order); !ok {
		e.logger.Warn().Str("symbol", ticker).Msg("Trade rejected: " + reason)
		e.recordFailure(ticker, action, quantity, currentPrice, reason)
		return 0
	}

	subCtx, cancel := e.callCtx(ctx)
	result := e.broker.SubmitOrder(subCtx, order)
	cancel()

	if result.FilledQuantity <= 0 {
		reason := result.ErrorMsg
		if reason == "" {
			reason = fmt.Sprintf("order not filled (status %s)", result.Status)
		}
		e.logger.Warn().Str("symbol", ticker).Str("status", string(result.Status)).Msg("Trade failed: " + reason)
		e.recordFailure(ticker, action, quantity, currentPrice, reason)
		return 0
	}

	e.successfulTrades++
	e.executionHistory = append(e.executionHistory, result)

	e.applyFill(portfolio, ticker, action, result.FilledQuantity, result.AvgPrice)
	e.risk.RecordTrade(order, result.FilledQuantity, result.AvgPrice)
	e.journalFill(ctx, order, action, result)

	logging.LogTrade(e.logger, ticker, string(action), quantity, result.FilledQuantity, result.AvgPrice)
	return result.FilledQuantity
}

// journalFill persists an executed trade. Store failures are logged and
// never fail the trade itself.
func (e *Executor) journalFill(ctx context.Context, order *models.TradeOrder, action models.Action, result *models.TradeResult) {
	if e.journal == nil {
		return
	}

	record := &models.TradeRecord{
		Timestamp:  time.Now(),
		Symbol:     order.Symbol,
		Market:     order.Market,
		Side:       order.Side,
		Action:     action,
		Quantity:   result.FilledQuantity,
		FillPrice:  result.AvgPrice,
		Commission: result.Commission,
		OrderID:    result.OrderID,
		Status:     result.Status,
		DryRun:     e.cfg.DryRun,
	}
	if err := e.journal.LogTrade(ctx, record); err != nil {
		e.logger.Warn().Err(err).Str("symbol", order.Symbol).Msg("Failed to journal trade")
	}
}

// journalRejection persists a risk rejection so blocked trades stay
// auditable alongside executed ones.
func (e *Executor) journalRejection(ctx context.Context, order *models.TradeOrder, verdict risk.Verdict) {
	if e.journal == nil {
		return
	}

	event := &models.RiskEvent{
		Timestamp: time.Now(),
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		Message:   verdict.Reason,
		RiskLevel: string(verdict.Level),
	}
	if err := e.journal.LogRiskEvent(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("symbol", order.Symbol).Msg("Failed to journal risk event")
	}
}

// validate runs connectivity, risk and funds checks against a candidate
// order. It reports the first failing reason.
func (e *Executor) validate(ctx context.Context, order *models.TradeOrder) (bool, string) {
	if !e.broker.IsConnected() {
		return false, "Not connected to trading platform"
	}

	acctCtx, cancel := e.callCtx(ctx)
	account, err := e.broker.GetAccountInfo(acctCtx)
	cancel()
	if err != nil || account == nil {
		return false, "Unable to get account information"
	}

	posCtx, cancel := e.callCtx(ctx)
	positions, err := e.broker.GetPositions(posCtx)
	cancel()
	if err != nil {
		return false, "Unable to get positions"
	}

	verdict := e.risk.ValidateOrder(order, account, positions)
	if !verdict.Approved {
		e.journalRejection(ctx, order, verdict)
		return false, verdict.Reason
	}

	estimatedValue := float64(order.Quantity) * order.Price

	if order.Side == models.SideBuy {
		if estimatedValue > account.BuyingPower {
			return false, fmt.Sprintf("Insufficient buying power. Required: %.2f, Available: %.2f", estimatedValue, account.BuyingPower)
		}
	}

	if order.Side == models.SideSell && !e.cfg.EnableShortSelling {
		held := 0
		for _, p := range positions {
			if p.Symbol == order.Symbol {
				held = p.Quantity
				break
			}
		}
		if held < order.Quantity {
			return false, fmt.Sprintf("Insufficient shares to sell. Required: %d, Available: %d", order.Quantity, held)
		}
	}

	if e.cfg.MaxOrderValue > 0 && estimatedValue > e.cfg.MaxOrderValue {
		return false, fmt.Sprintf("Order value exceeds limit. Value: %.2f, Limit: %.2f", estimatedValue, e.cfg.MaxOrderValue)
	}

	return true, "Trade validation passed"
}

// applyFill updates the portfolio mirror with the actual fill and feeds
// realized P&L back into the risk counters.
func (e *Executor) applyFill(portfolio *Portfolio, ticker string, action models.Action, quantity int, price float64) {
	if portfolio == nil {
		return
	}

	switch action {
	case models.ActionBuy:
		portfolio.ApplyLongBuy(ticker, quantity, price)
	case models.ActionSell:
		realized := portfolio.ApplyLongSell(ticker, quantity, price)
		e.risk.UpdatePnL(realized)
	case models.ActionShort:
		portfolio.ApplyShortOpen(ticker, quantity, price)
	case models.ActionCover:
		realized := portfolio.ApplyShortCover(ticker, quantity, price)
		e.risk.UpdatePnL(realized)
	}
}

func (e *Executor) recordFailure(ticker string, action models.Action, requestedQty int, price float64, reason string) {
	e.failedTrades = append(e.failedTrades, models.FailedTrade{
		Timestamp:    time.Now(),
		Ticker:       ticker,
		Action:       action,
		RequestedQty: requestedQty,
		ExecutedQty:  0,
		Price:        price,
		Error:        reason,
	})
	if len(e.failedTrades) > maxFailedTrades {
		e.failedTrades = e.failedTrades[len(e.failedTrades)-maxFailedTrades:]
	}
}

// ExecutionReport aggregates executor activity.
type ExecutionReport struct {
	TotalTrades        int
	SuccessfulTrades   int
	FailedTrades       int
	SuccessRate        float64
	TotalExecutedValue float64
	TotalCommission    float64
	RecentFailures     []models.FailedTrade
}

// GetExecutionReport summarizes all executor activity so far.
func (e *Executor) GetExecutionReport() ExecutionReport {
	totalValue := 0.0
	totalCommission := 0.0
	for _, t := range e.executionHistory {
		if t.FilledQuantity > 0 {
			totalValue += t.AvgPrice * float64(t.FilledQuantity)
			totalCommission += t.Commission
		}
	}

	failures := e.failedTrades
	if len(failures) > 10 {
		failures = failures[len(failures)-10:]
	}
	recent := make([]models.FailedTrade, len(failures))
	copy(recent, failures)

	total := e.totalTrades
	if total < 1 {
		total = 1
	}

	return ExecutionReport{
		TotalTrades:        e.totalTrades,
		SuccessfulTrades:   e.successfulTrades,
		FailedTrades:       len(e.failedTrades),
		SuccessRate:        float64(e.successfulTrades) / float64(total),
		TotalExecutedValue: totalValue,
		TotalCommission:    totalCommission,
		RecentFailures:     recent,
	}
}

// TradeSummary is the compact success/failure tally.
type TradeSummary struct {
	TotalTrades      int
	SuccessfulTrades int
	FailedTrades     int
	SuccessRate      float64
}

// GetTradeSummary tallies submitted orders by terminal status.
func (e *Executor) GetTradeSummary() TradeSummary {
	successful := 0
	failed := 0
	for _, t := range e.executionHistory {
		if t.Successful() {
			successful++
		}
		if t.Failed() {
			failed++
		}
	}
	failed += len(e.failedTrades)

	total := e.totalTrades
	rate := 0.0
	if total > 0 {
		rate = float64(successful) / float64(total)
	}

	return TradeSummary{
		TotalTrades:      total,
		SuccessfulTrades: successful,
		FailedTrades:     failed,
		SuccessRate:      rate,
	}
}

// AccountSummary combines broker state with executor statistics.
type AccountSummary struct {
	AccountInfo *models.AccountInfo
	Positions   []models.Position
	Summary     TradeSummary
	Report      ExecutionReport
}

// GetAccountSummary fetches account state and pairs it with execution
// statistics. Broker fetch failures surface as errors; the caller decides
// any fallback.
func (e *Executor) GetAccountSummary(ctx context.Context) (*AccountSummary, error) {
	acctCtx, cancel := e.callCtx(ctx)
	account, err := e.broker.GetAccountInfo(acctCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetching account info: %w", err)
	}

	posCtx, cancel := e.callCtx(ctx)
	positions, err := e.broker.GetPositions(posCtx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	return &AccountSummary{
		AccountInfo: account,
		Positions:   positions,
		Summary:     e.GetTradeSummary(),
		Report:      e.GetExecutionReport(),
	}, nil
}

// ValidateSession checks that the session is ready to trade.
func (e *Executor) ValidateSession(ctx context.Context) (bool, string) {
	if !e.broker.IsConnected() {
		return false, "Not connected to trading platform"
	}

	acctCtx, cancel := e.callCtx(ctx)
	account, err := e.broker.GetAccountInfo(acctCtx)
	cancel()
	if err != nil || account == nil {
		return false, "Unable to get account information"
	}

	if account.BuyingPower <= 0 {
		return false, "No buying power available"
	}

	return true, "Trading session is ready"
}
