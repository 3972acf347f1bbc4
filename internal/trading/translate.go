// Package trading turns AI decisions into risk-checked broker orders.
package trading

import (
	"github.com/ZhuOS/ai-hedge-fund/internal/models"

	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// Translate converts a decision into a candidate market order. It returns
// nil when there is nothing to trade: a hold action, an unknown action or
// a non-positive quantity.
//
// Shorting and selling map to the same SELL side; only portfolio
// bookkeeping distinguishes opening a short from closing a long. The same
// holds for cover and buy on the BUY side.
func Translate(ticker string, action models.Action, quantity int, price float64) *models.TradeOrder {
	if quantity <= 0 {
		return nil
	}

	var side models.TradeSide
	switch action {
	case models.ActionBuy, models.ActionCover:
		side = models.SideBuy
	case models.ActionSell, models.ActionShort:
		side = models.SideSell
	default:
		return nil
	}

	// Market detection is a best-effort heuristic on symbol shape.
	market := utils.DetectMarket(ticker)

	order, err := models.NewTradeOrder(ticker, side, quantity, models.OrderTypeMarket, price, market)
	if err != nil {
		return nil
	}
	return order
}
