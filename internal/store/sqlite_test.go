package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trading.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(symbol string, side models.TradeSide, ts time.Time) *models.TradeRecord {
	return &models.TradeRecord{
		Timestamp:  ts,
		Symbol:     symbol,
		Market:     models.MarketUS,
		Side:       side,
		Action:     models.ActionBuy,
		Quantity:   10,
		FillPrice:  150.25,
		Commission: 1.5,
		OrderID:    "SIM-1",
		Status:     models.StatusFilled,
		DryRun:     true,
	}
}

func TestSQLiteStoreTradeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trade := sampleTrade("AAPL", models.SideBuy, time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC))
	require.NoError(t, s.LogTrade(ctx, trade))
	assert.NotEmpty(t, trade.ID, "missing ID should be generated")

	trades, err := s.GetTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, models.MarketUS, got.Market)
	assert.Equal(t, models.SideBuy, got.Side)
	assert.Equal(t, models.ActionBuy, got.Action)
	assert.Equal(t, 10, got.Quantity)
	assert.Equal(t, 150.25, got.FillPrice)
	assert.Equal(t, 1.5, got.Commission)
	assert.Equal(t, "SIM-1", got.OrderID)
	assert.Equal(t, models.StatusFilled, got.Status)
	assert.True(t, got.DryRun)
	assert.WithinDuration(t, trade.Timestamp, got.Timestamp, time.Second)
}

func TestSQLiteStoreTradeFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	aapl := sampleTrade("AAPL", models.SideBuy, base)
	msft := sampleTrade("MSFT", models.SideSell, base.Add(time.Hour))
	msft.Action = models.ActionSell
	live := sampleTrade("AAPL", models.SideBuy, base.Add(2*time.Hour))
	live.DryRun = false

	for _, trade := range []*models.TradeRecord{aapl, msft, live} {
		require.NoError(t, s.LogTrade(ctx, trade))
	}

	bySymbol, err := s.GetTrades(ctx, TradeFilter{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, bySymbol, 2)
	assert.Equal(t, live.ID, bySymbol[0].ID, "newest trade should come first")
	assert.Equal(t, aapl.ID, bySymbol[1].ID)

	bySide, err := s.GetTrades(ctx, TradeFilter{Side: "SELL"})
	require.NoError(t, err)
	require.Len(t, bySide, 1)
	assert.Equal(t, "MSFT", bySide[0].Symbol)

	dryRun := true
	paper, err := s.GetTrades(ctx, TradeFilter{DryRun: &dryRun})
	require.NoError(t, err)
	assert.Len(t, paper, 2)

	liveOnly := false
	liveTrades, err := s.GetTrades(ctx, TradeFilter{DryRun: &liveOnly})
	require.NoError(t, err)
	require.Len(t, liveTrades, 1)
	assert.Equal(t, live.ID, liveTrades[0].ID)

	window, err := s.GetTrades(ctx, TradeFilter{
		StartDate: base.Add(30 * time.Minute),
		EndDate:   base.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, msft.ID, window[0].ID)

	limited, err := s.GetTrades(ctx, TradeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.GetTrades(ctx, TradeFilter{Symbol: "NVDA"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStoreRiskEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	messages := []string{"Position size limit exceeded", "Daily trade limit reached: 10", "Circuit breaker active - trading halted"}
	for i, msg := range messages {
		err := s.LogRiskEvent(ctx, &models.RiskEvent{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Symbol:    "AAPL",
			Side:      models.SideBuy,
			Quantity:  100,
			Message:   msg,
			RiskLevel: "HIGH",
		})
		require.NoError(t, err)
	}

	newest, err := s.GetRiskEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, messages[2], newest[0].Message)
	assert.Equal(t, messages[1], newest[1].Message)
	assert.Equal(t, models.SideBuy, newest[0].Side)

	all, err := s.GetRiskEvents(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit should fall back to the default")
}

func TestSQLiteStoreDecisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	buy := models.Decision{Action: models.ActionBuy, Quantity: 25, Confidence: 82.5, Reasoning: "momentum breakout"}
	hold := models.Decision{Action: models.ActionHold, Quantity: 0, Confidence: 40, Reasoning: "mixed signals"}

	require.NoError(t, s.SaveDecision(ctx, "AAPL", buy, 25, true))
	require.NoError(t, s.SaveDecision(ctx, "MSFT", hold, 0, true))

	byTicker, err := s.GetDecisions(ctx, DecisionFilter{Ticker: "AAPL"})
	require.NoError(t, err)
	require.Len(t, byTicker, 1)
	got := byTicker[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "buy", got.Action)
	assert.Equal(t, 25, got.Quantity)
	assert.Equal(t, 82.5, got.Confidence)
	assert.Equal(t, "momentum breakout", got.Reasoning)
	assert.Equal(t, 25, got.ExecutedQty)
	assert.True(t, got.DryRun)

	byAction, err := s.GetDecisions(ctx, DecisionFilter{Action: "hold"})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, "MSFT", byAction[0].Ticker)

	all, err := s.GetDecisions(ctx, DecisionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := s.GetDecisions(ctx, DecisionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStoreValidationRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.GetLatestValidationRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty, "no runs recorded yet")

	first := &ValidationRun{
		Timestamp:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		TotalTests:  13,
		Passed:      12,
		Failed:      1,
		SuccessRate: 12.0 / 13.0,
		Report:      `{"status":"degraded"}`,
	}
	require.NoError(t, s.SaveValidationRun(ctx, first))
	assert.NotEmpty(t, first.ID, "missing ID should be generated")

	second := &ValidationRun{
		ID:          "run-2",
		Timestamp:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		TotalTests:  13,
		Passed:      13,
		Failed:      0,
		SuccessRate: 1.0,
		Report:      `{"status":"ok"}`,
	}
	require.NoError(t, s.SaveValidationRun(ctx, second))

	latest, err := s.GetLatestValidationRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.ID)
	assert.Equal(t, 13, latest.Passed)
	assert.Equal(t, 0, latest.Failed)
	assert.Equal(t, 1.0, latest.SuccessRate)
	assert.Equal(t, `{"status":"ok"}`, latest.Report)
}

func TestNewSQLiteStoreUnwritablePath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "trading.db"))
	assert.Error(t, err, "schema init should fail when the directory does not exist")
}
