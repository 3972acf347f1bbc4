package trading

import (
	"testing"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

func TestTranslateActionToSide(t *testing.T) {
	tests := []struct {
		action models.Action
		side   models.TradeSide
	}{
		{models.ActionBuy, models.SideBuy},
		{models.ActionCover, models.SideBuy},
		{models.ActionSell, models.SideSell},
		{models.ActionShort, models.SideSell},
	}

	for _, tt := range tests {
		order := Translate("AAPL", tt.action, 10, 150)
		if order == nil {
			t.Fatalf("Translate(%s) returned nil", tt.action)
		}
		if order.Side != tt.side {
			t.Errorf("Translate(%s) side = %s, want %s", tt.action, order.Side, tt.side)
		}
	}
}

func TestTranslateOrderFields(t *testing.T) {
	order := Translate("AAPL", models.ActionBuy, 25, 187.5)
	if order == nil {
		t.Fatal("Translate returned nil for a valid buy")
	}
	if order.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", order.Symbol)
	}
	if order.Quantity != 25 {
		t.Errorf("Quantity = %d, want 25", order.Quantity)
	}
	if order.Type != models.OrderTypeMarket {
		t.Errorf("Type = %s, want MARKET", order.Type)
	}
	if order.Price != 187.5 {
		t.Errorf("Price = %v, want 187.5", order.Price)
	}
	if order.Market != models.MarketUS {
		t.Errorf("Market = %s, want US", order.Market)
	}
	if order.TimeInForce != "DAY" {
		t.Errorf("TimeInForce = %q, want DAY", order.TimeInForce)
	}
}

func TestTranslateDetectsMarket(t *testing.T) {
	tests := []struct {
		symbol string
		market models.Market
	}{
		{"AAPL", models.MarketUS},
		{"00700", models.MarketHK},
		{"600519", models.MarketCN},
		{"BRK.B", models.MarketUS},
	}

	for _, tt := range tests {
		order := Translate(tt.symbol, models.ActionBuy, 1, 100)
		if order == nil {
			t.Fatalf("Translate(%q) returned nil", tt.symbol)
		}
		if order.Market != tt.market {
			t.Errorf("Translate(%q) market = %s, want %s", tt.symbol, order.Market, tt.market)
		}
	}
}

func TestTranslateReturnsNilForNonTrades(t *testing.T) {
	if Translate("AAPL", models.ActionHold, 10, 150) != nil {
		t.Error("Hold should not produce an order")
	}
	if Translate("AAPL", models.Action("rebalance"), 10, 150) != nil {
		t.Error("Unknown action should not produce an order")
	}
	if Translate("AAPL", models.ActionBuy, 0, 150) != nil {
		t.Error("Zero quantity should not produce an order")
	}
	if Translate("AAPL", models.ActionBuy, -5, 150) != nil {
		t.Error("Negative quantity should not produce an order")
	}
}
