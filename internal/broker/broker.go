// Package broker provides broker integration interfaces and implementations.
package broker

import (
	"context"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// Broker defines the capability set the execution layer depends on. Every
// method other than Connect fails fast when the broker is disconnected.
// SubmitOrder never returns an error: submission failures are reported as a
// TradeResult with status FAILED or REJECTED and the error message attached.
type Broker interface {
	// Connection
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	// Account
	GetAccountInfo(ctx context.Context) (*models.AccountInfo, error)
	GetPositions(ctx context.Context) ([]models.Position, error)

	// Market data
	GetMarketPrice(ctx context.Context, symbol string) (float64, error)

	// Orders
	SubmitOrder(ctx context.Context, order *models.TradeOrder) *models.TradeResult
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*models.TradeResult, error)
}

// DemoAccount is the degraded-mode account snapshot used when a broker
// cannot produce real account data and the caller opted into fallbacks.
func DemoAccount() *models.AccountInfo {
	return &models.AccountInfo{
		AccountID:     "DEMO_ACCOUNT",
		TotalAssets:   100000.0,
		Cash:          50000.0,
		MarketValue:   50000.0,
		UnrealizedPnL: 0,
		RealizedPnL:   0,
		BuyingPower:   50000.0,
	}
}
