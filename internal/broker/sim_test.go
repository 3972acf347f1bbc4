package broker

import (
	"context"
	"math"
	"testing"

	apperrors "github.com/ZhuOS/ai-hedge-fund/internal/errors"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

func marketBuy(t *testing.T, symbol string, qty int) *models.TradeOrder {
	t.Helper()
	order, err := models.NewTradeOrder(symbol, models.SideBuy, qty, models.OrderTypeMarket, 0, models.MarketUS)
	if err != nil {
		t.Fatalf("Failed to build order: %v", err)
	}
	return order
}

func marketSell(t *testing.T, symbol string, qty int) *models.TradeOrder {
	t.Helper()
	order, err := models.NewTradeOrder(symbol, models.SideSell, qty, models.OrderTypeMarket, 0, models.MarketUS)
	if err != nil {
		t.Fatalf("Failed to build order: %v", err)
	}
	return order
}

func TestSimBrokerLifecycle(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()

	if sim.IsConnected() {
		t.Error("New simulator should start disconnected")
	}
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !sim.IsConnected() {
		t.Error("Connect should mark the simulator connected")
	}
	if err := sim.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if sim.IsConnected() {
		t.Error("Disconnect should mark the simulator disconnected")
	}
}

func TestSimBrokerRequiresConnection(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()

	if _, err := sim.GetAccountInfo(ctx); !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("GetAccountInfo error = %v, want ErrNotConnected", err)
	}
	if _, err := sim.GetPositions(ctx); !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("GetPositions error = %v, want ErrNotConnected", err)
	}
	if _, err := sim.GetMarketPrice(ctx, "AAPL"); !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("GetMarketPrice error = %v, want ErrNotConnected", err)
	}
	if err := sim.CancelOrder(ctx, "SIM-1"); !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("CancelOrder error = %v, want ErrNotConnected", err)
	}
	if _, err := sim.GetOrderStatus(ctx, "SIM-1"); !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("GetOrderStatus error = %v, want ErrNotConnected", err)
	}

	result := sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 1))
	if result.Status != models.StatusFailed || result.ErrorMsg != "broker not connected" {
		t.Errorf("SubmitOrder while disconnected = %+v", result)
	}
}

func TestSimAccountDefaults(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	account, err := sim.GetAccountInfo(ctx)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if account.AccountID != "SIM_ACCOUNT" {
		t.Errorf("AccountID = %q, want SIM_ACCOUNT", account.AccountID)
	}
	if account.Cash != 100000 || account.TotalAssets != 100000 {
		t.Errorf("Fresh account = %+v, want 100000 cash", account)
	}
	if account.BuyingPower != account.Cash {
		t.Errorf("BuyingPower = %v, want cash %v", account.BuyingPower, account.Cash)
	}

	positions, err := sim.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("Fresh account has %d positions, want 0", len(positions))
	}
}

func TestSimMarketPriceLookup(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)

	price, err := sim.GetMarketPrice(ctx, "AAPL")
	if err != nil || price != 150 {
		t.Errorf("GetMarketPrice = (%v, %v), want (150, nil)", price, err)
	}

	// Symbol lookup is case-insensitive.
	price, err = sim.GetMarketPrice(ctx, "aapl")
	if err != nil || price != 150 {
		t.Errorf("GetMarketPrice lowercase = (%v, %v), want (150, nil)", price, err)
	}

	if _, err := sim.GetMarketPrice(ctx, "NVDA"); !apperrors.Is(err, apperrors.ErrPriceUnavailable) {
		t.Errorf("Unseeded symbol error = %v, want ErrPriceUnavailable", err)
	}
}

func TestSimBuyFillMath(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)

	result := sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 10))

	if result.Status != models.StatusFilled {
		t.Fatalf("Status = %s, want FILLED: %+v", result.Status, result)
	}
	if result.FilledQuantity != 10 {
		t.Errorf("FilledQuantity = %d, want 10", result.FilledQuantity)
	}

	wantFill := 150 * (1 + SimSlippage)
	if math.Abs(result.AvgPrice-wantFill) > 1e-9 {
		t.Errorf("AvgPrice = %v, want %v", result.AvgPrice, wantFill)
	}

	wantCommission := SimCommissionRate * 10 * wantFill
	if wantCommission < SimCommissionMin {
		wantCommission = SimCommissionMin
	}
	if math.Abs(result.Commission-wantCommission) > 1e-9 {
		t.Errorf("Commission = %v, want %v", result.Commission, wantCommission)
	}

	account, err := sim.GetAccountInfo(ctx)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	wantCash := 100000 - 10*wantFill - wantCommission
	if math.Abs(account.Cash-wantCash) > 1e-9 {
		t.Errorf("Cash = %v, want %v", account.Cash, wantCash)
	}

	positions, err := sim.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 1 || positions[0].Quantity != 10 {
		t.Fatalf("Positions = %+v, want one 10-share lot", positions)
	}
	if math.Abs(positions[0].AvgCost-wantFill) > 1e-9 {
		t.Errorf("AvgCost = %v, want %v", positions[0].AvgCost, wantFill)
	}
}

func TestSimCommissionFloor(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("PENNY", 1)

	result := sim.SubmitOrder(ctx, marketBuy(t, "PENNY", 1))
	if result.Commission != SimCommissionMin {
		t.Errorf("Commission = %v, want the %v floor", result.Commission, SimCommissionMin)
	}
}

func TestSimSellRealizesPnL(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)

	buy := sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 10))
	if buy.Status != models.StatusFilled {
		t.Fatalf("Buy not filled: %+v", buy)
	}

	sell := sim.SubmitOrder(ctx, marketSell(t, "AAPL", 10))
	if sell.Status != models.StatusFilled {
		t.Fatalf("Sell not filled: %+v", sell)
	}
	wantSellFill := 150 * (1 - SimSlippage)
	if math.Abs(sell.AvgPrice-wantSellFill) > 1e-9 {
		t.Errorf("Sell AvgPrice = %v, want %v", sell.AvgPrice, wantSellFill)
	}

	account, err := sim.GetAccountInfo(ctx)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	// Both fills slip against the trader.
	wantRealized := 10 * (sell.AvgPrice - buy.AvgPrice)
	if math.Abs(account.RealizedPnL-wantRealized) > 1e-9 {
		t.Errorf("RealizedPnL = %v, want %v", account.RealizedPnL, wantRealized)
	}

	positions, err := sim.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("Closed lot should drop out of positions, got %+v", positions)
	}
}

func TestSimShortThenCover(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("TSLA", 150)

	short := sim.SubmitOrder(ctx, marketSell(t, "TSLA", 10))
	if short.Status != models.StatusFilled {
		t.Fatalf("Short not filled: %+v", short)
	}

	positions, err := sim.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 1 || positions[0].Quantity != -10 {
		t.Fatalf("Positions = %+v, want a -10 lot", positions)
	}

	sim.SetMarketPrice("TSLA", 140)
	cover := sim.SubmitOrder(ctx, marketBuy(t, "TSLA", 10))
	if cover.Status != models.StatusFilled {
		t.Fatalf("Cover not filled: %+v", cover)
	}

	account, err := sim.GetAccountInfo(ctx)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	wantRealized := 10 * (short.AvgPrice - cover.AvgPrice)
	if math.Abs(account.RealizedPnL-wantRealized) > 1e-9 {
		t.Errorf("RealizedPnL = %v, want %v", account.RealizedPnL, wantRealized)
	}
}

func TestSimSubmitUnseededSymbolFails(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	result := sim.SubmitOrder(ctx, marketBuy(t, "NVDA", 5))
	if result.Status != models.StatusFailed {
		t.Fatalf("Status = %s, want FAILED", result.Status)
	}
	if result.ErrorMsg != "unable to get market price for simulation" {
		t.Errorf("ErrorMsg = %q", result.ErrorMsg)
	}

	// The failed order is still tracked.
	stored, err := sim.GetOrderStatus(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("GetOrderStatus failed: %v", err)
	}
	if stored.Status != models.StatusFailed {
		t.Errorf("Stored status = %s, want FAILED", stored.Status)
	}
}

func TestSimCancelOrder(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)

	if err := sim.CancelOrder(ctx, "SIM-missing"); !apperrors.Is(err, apperrors.ErrOrderNotFound) {
		t.Errorf("Unknown order error = %v, want ErrOrderNotFound", err)
	}

	result := sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 1))
	if err := sim.CancelOrder(ctx, result.OrderID); !apperrors.Is(err, apperrors.ErrOrderRejected) {
		t.Errorf("Cancelling a filled order error = %v, want ErrOrderRejected", err)
	}
}

func TestSimGetOrderStatusReturnsCopy(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)

	result := sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 1))

	first, err := sim.GetOrderStatus(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("GetOrderStatus failed: %v", err)
	}
	first.Status = models.StatusRejected

	second, err := sim.GetOrderStatus(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("GetOrderStatus failed: %v", err)
	}
	if second.Status != models.StatusFilled {
		t.Error("Mutating a returned order should not affect stored state")
	}
}

func TestSimReset(t *testing.T) {
	ctx := context.Background()
	sim := NewSimBroker()
	if err := sim.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	sim.SetMarketPrice("AAPL", 150)
	sim.SubmitOrder(ctx, marketBuy(t, "AAPL", 10))

	sim.Reset()

	if !sim.IsConnected() {
		t.Error("Reset should keep the connection flag")
	}
	account, err := sim.GetAccountInfo(ctx)
	if err != nil {
		t.Fatalf("GetAccountInfo failed: %v", err)
	}
	if account.Cash != 100000 || account.RealizedPnL != 0 {
		t.Errorf("Account after reset = %+v", account)
	}
	positions, err := sim.GetPositions(ctx)
	if err != nil {
		t.Fatalf("GetPositions failed: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("Positions after reset = %+v, want none", positions)
	}
	if _, err := sim.GetMarketPrice(ctx, "AAPL"); err == nil {
		t.Error("Reset should clear seeded quotes")
	}
}

func TestDemoAccount(t *testing.T) {
	account := DemoAccount()
	if account.AccountID != "DEMO_ACCOUNT" {
		t.Errorf("AccountID = %q, want DEMO_ACCOUNT", account.AccountID)
	}
	if account.TotalAssets != 100000 || account.Cash != 50000 || account.MarketValue != 50000 {
		t.Errorf("Unexpected demo account: %+v", account)
	}
	if account.BuyingPower != 50000 {
		t.Errorf("BuyingPower = %v, want 50000", account.BuyingPower)
	}
}
