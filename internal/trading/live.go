package trading

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZhuOS/ai-hedge-fund/internal/broker"
	"github.com/ZhuOS/ai-hedge-fund/internal/decisions"
	apperrors "github.com/ZhuOS/ai-hedge-fund/internal/errors"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/internal/performance"
	"github.com/ZhuOS/ai-hedge-fund/internal/risk"
	"github.com/ZhuOS/ai-hedge-fund/internal/store"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// quoteWorkers bounds concurrent quote fetches per batch.
const quoteWorkers = 4

// SessionConfig holds the parameters for one decision batch.
type SessionConfig struct {
	Tickers           []string
	InitialCash       float64 // 0 means start from the broker's cash balance
	MarginRequirement float64
	DryRun            bool
}

// Session drives one decision batch end to end: gather market context,
// ask the decision provider, execute each decision through the risk
// pipeline, and summarize the batch.
type Session struct {
	broker   broker.Broker
	executor *Executor
	risk     *risk.Manager
	provider decisions.Provider
	journal  store.DataStore // optional; nil disables persistence
	cfg      SessionConfig
	logger   zerolog.Logger
}

// NewSession assembles a session runner from already-constructed parts.
// The caller owns the broker connection lifecycle.
func NewSession(b broker.Broker, ex *Executor, rm *risk.Manager, provider decisions.Provider, journal store.DataStore, cfg SessionConfig, logger zerolog.Logger) *Session {
	return &Session{
		broker:   b,
		executor: ex,
		risk:     rm,
		provider: provider,
		journal:  journal,
		cfg:      cfg,
		logger:   logger,
	}
}

// TickerOutcome describes what happened to one ticker in a batch.
type TickerOutcome struct {
	Status   string // executed, failed, skipped
	Quantity int
	Price    float64
	Value    float64
	Reason   string
}

// SessionResult summarizes one completed batch.
type SessionResult struct {
	Decisions        models.DecisionSet
	Outcomes         map[string]TickerOutcome
	TotalDecisions   int
	SuccessfulTrades int
	TotalValue       float64
	RiskSummary      risk.Summary
	FinalAccount     *models.AccountInfo
}

// Run executes one full decision batch. Individual ticker failures are
// collected as outcomes; only batch-level problems (no connection, no
// decisions) return an error.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	if !s.broker.IsConnected() {
		return nil, apperrors.ErrNotConnected
	}

	account, err := s.broker.GetAccountInfo(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Account info unavailable, using demo account")
		account = broker.DemoAccount()
	}

	positions, err := s.broker.GetPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	tickers := make([]string, len(s.cfg.Tickers))
	copy(tickers, s.cfg.Tickers)
	sort.Strings(tickers)

	s.warnClosedMarkets(tickers)

	result := &SessionResult{
		Outcomes: make(map[string]TickerOutcome, len(tickers)),
	}

	prices := s.fetchPrices(ctx, tickers, result)

	decisionSet, err := s.provider.Decide(ctx, decisions.Request{
		Tickers:   tickers,
		Prices:    prices,
		Account:   account,
		Positions: positions,
	})
	if err != nil {
		return nil, fmt.Errorf("decision provider: %w", err)
	}
	result.Decisions = decisionSet
	result.TotalDecisions = len(decisionSet)

	cash := s.cfg.InitialCash
	if cash <= 0 {
		cash = account.Cash
	}
	portfolio := NewPortfolio(cash, s.cfg.MarginRequirement)
	for _, p := range positions {
		if p.Quantity > 0 {
			portfolio.ApplyLongBuy(p.Symbol, p.Quantity, p.AvgCost)
		}
	}
	// Seeding buys consumed mirror cash; the broker balance already
	// reflects those holdings.
	portfolio.SetCash(cash)

	for _, ticker := range tickers {
		if _, ok := result.Outcomes[ticker]; ok {
			continue // price fetch already failed
		}
		decision, ok := decisionSet[ticker]
		if !ok || decision.Action == models.ActionHold || decision.Quantity <= 0 {
			result.Outcomes[ticker] = TickerOutcome{Status: "skipped", Reason: "hold"}
			continue
		}

		price := prices[ticker]
		executed := s.executor.Execute(ctx, ticker, decision.Action, decision.Quantity, price, portfolio)
		s.journalDecision(ctx, ticker, decision, executed)

		if executed > 0 {
			value := float64(executed) * price
			result.SuccessfulTrades++
			result.TotalValue += value
			result.Outcomes[ticker] = TickerOutcome{
				Status:   "executed",
				Quantity: executed,
				Price:    price,
				Value:    value,
			}
		} else {
			result.Outcomes[ticker] = TickerOutcome{
				Status: "failed",
				Reason: s.lastFailureReason(ticker),
			}
		}
	}

	result.RiskSummary = s.risk.GetSummary()

	if final, err := s.broker.GetAccountInfo(ctx); err == nil {
		result.FinalAccount = final
	} else {
		result.FinalAccount = account
	}

	s.logger.Info().
		Int("decisions", result.TotalDecisions).
		Int("executed", result.SuccessfulTrades).
		Float64("total_value", result.TotalValue).
		Bool("circuit_breaker", result.RiskSummary.CircuitBreakerActive).
		Msg("Session complete")

	return result, nil
}

// fetchPrices gathers quotes for the batch concurrently; each quote is
// a gateway round trip. Tickers without a price are marked failed so
// the execution loop skips them.
func (s *Session) fetchPrices(ctx context.Context, tickers []string, result *SessionResult) map[string]float64 {
	pool := performance.NewWorkerPool(quoteWorkers)
	pool.Start()

	var mu sync.Mutex
	prices := make(map[string]float64, len(tickers))

	for _, ticker := range tickers {
		pool.Submit(func() {
			price, err := s.broker.GetMarketPrice(ctx, ticker)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", ticker).Msg("No market price")
				result.Outcomes[ticker] = TickerOutcome{Status: "failed", Reason: "No market price"}
				return
			}
			prices[ticker] = price
		})
	}
	pool.Stop()

	return prices
}

// warnClosedMarkets flags tickers whose market is not currently open.
// The batch still runs; the gateway decides whether to queue or reject.
func (s *Session) warnClosedMarkets(tickers []string) {
	seen := make(map[models.Market]bool)
	for _, ticker := range tickers {
		market := utils.DetectMarket(ticker)
		if seen[market] {
			continue
		}
		seen[market] = true
		if status := utils.GetMarketStatus(market); status != models.MarketOpen {
			s.logger.Warn().
				Str("market", string(market)).
				Str("status", string(status)).
				Msg("Market is not open")
		}
	}
}

func (s *Session) journalDecision(ctx context.Context, ticker string, decision models.Decision, executed int) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveDecision(ctx, ticker, decision, executed, s.cfg.DryRun); err != nil {
		s.logger.Warn().Err(err).Str("symbol", ticker).Msg("Failed to journal decision")
	}
}

// lastFailureReason pulls the most recent failed-trade entry for a
// ticker out of the executor's bounded log.
func (s *Session) lastFailureReason(ticker string) string {
	report := s.executor.GetExecutionReport()
	for i := len(report.RecentFailures) - 1; i >= 0; i-- {
		if report.RecentFailures[i].Ticker == ticker {
			return report.RecentFailures[i].Error
		}
	}
	return "trade not executed"
}
