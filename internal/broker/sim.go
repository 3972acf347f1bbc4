package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ZhuOS/ai-hedge-fund/internal/errors"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// Simulated fill model: fixed slippage against the quoted price and a
// commission floor, matching the live schedule closely enough for rehearsal.
const (
	SimSlippage       = 0.001
	SimCommissionMin  = 1.0
	SimCommissionRate = 0.001

	simInitialCash = 100000.0
)

// SimBroker is a deterministic in-memory broker used for dry runs. Orders
// always fill completely at the slipped market price; there is no order book
// and no partial fills.
type SimBroker struct {
	mu sync.RWMutex

	connected bool
	accountID string

	cash      float64
	realized  float64
	positions map[string]*simPosition
	orders    map[string]*models.TradeResult
	prices    map[string]float64
}

type simPosition struct {
	Quantity int
	AvgCost  float64
}

// NewSimBroker creates a simulated broker with the default starting state.
func NewSimBroker() *SimBroker {
	return &SimBroker{
		accountID: "SIM_ACCOUNT",
		cash:      simInitialCash,
		positions: make(map[string]*simPosition),
		orders:    make(map[string]*models.TradeResult),
		prices:    make(map[string]float64),
	}
}

// Connect marks the broker connected. It never fails.
func (s *SimBroker) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

// Disconnect marks the broker disconnected. Safe to call repeatedly.
func (s *SimBroker) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// IsConnected reports the connection flag.
func (s *SimBroker) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// GetAccountInfo returns the simulated account snapshot.
func (s *SimBroker) GetAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, apperrors.ErrNotConnected
	}

	marketValue := 0.0
	unrealized := 0.0
	for symbol, pos := range s.positions {
		price, ok := s.prices[symbol]
		if !ok {
			price = pos.AvgCost
		}
		marketValue += float64(pos.Quantity) * price
		unrealized += float64(pos.Quantity) * (price - pos.AvgCost)
	}

	return &models.AccountInfo{
		AccountID:     s.accountID,
		TotalAssets:   s.cash + marketValue,
		Cash:          s.cash,
		MarketValue:   marketValue,
		UnrealizedPnL: unrealized,
		RealizedPnL:   s.realized,
		BuyingPower:   s.cash,
	}, nil
}

// GetPositions returns the simulated positions.
func (s *SimBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, apperrors.ErrNotConnected
	}

	positions := make([]models.Position, 0, len(s.positions))
	for symbol, pos := range s.positions {
		price, ok := s.prices[symbol]
		if !ok {
			price = pos.AvgCost
		}
		positions = append(positions, models.Position{
			Symbol:        symbol,
			Quantity:      pos.Quantity,
			AvgCost:       pos.AvgCost,
			MarketValue:   float64(pos.Quantity) * price,
			UnrealizedPnL: float64(pos.Quantity) * (price - pos.AvgCost),
			MarketPrice:   price,
		})
	}
	return positions, nil
}

// GetMarketPrice returns the seeded quote for a symbol.
func (s *SimBroker) GetMarketPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return 0, apperrors.ErrNotConnected
	}
	price, ok := s.prices[strings.ToUpper(symbol)]
	if !ok || price <= 0 {
		return 0, apperrors.NewDataError("quote", symbol, "no price seeded", apperrors.ErrPriceUnavailable)
	}
	return price, nil
}

// SubmitOrder simulates an execution. Fills are deterministic: the full
// quantity at the market price adjusted by SimSlippage, commission at
// max(SimCommissionMin, SimCommissionRate * notional).
func (s *SimBroker) SubmitOrder(ctx context.Context, order *models.TradeOrder) *models.TradeResult {
	now := time.Now()
	result := &models.TradeResult{
		OrderID:    fmt.Sprintf("SIM-%s", uuid.NewString()[:8]),
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Status:     models.StatusPending,
		SubmitTime: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		result.Status = models.StatusFailed
		result.ErrorMsg = "broker not connected"
		return result
	}

	price, ok := s.prices[strings.ToUpper(order.Symbol)]
	if !ok || price <= 0 {
		result.Status = models.StatusFailed
		result.ErrorMsg = "unable to get market price for simulation"
		s.orders[result.OrderID] = result
		return result
	}

	fillPrice := price * (1 + SimSlippage)
	if order.Side == models.SideSell {
		fillPrice = price * (1 - SimSlippage)
	}
	notional := float64(order.Quantity) * fillPrice
	commission := SimCommissionRate * notional
	if commission < SimCommissionMin {
		commission = SimCommissionMin
	}

	result.Status = models.StatusFilled
	result.FilledQuantity = order.Quantity
	result.AvgPrice = fillPrice
	result.Commission = commission
	result.UpdateTime = now

	s.applyFill(order.Symbol, order.Side, order.Quantity, fillPrice, commission)
	s.orders[result.OrderID] = result
	return result
}

// applyFill updates cash and the average-cost position book. Called with the
// lock held.
func (s *SimBroker) applyFill(symbol string, side models.TradeSide, qty int, price, commission float64) {
	symbol = strings.ToUpper(symbol)
	pos, exists := s.positions[symbol]
	if !exists {
		pos = &simPosition{}
		s.positions[symbol] = pos
	}

	if side == models.SideBuy {
		s.cash -= float64(qty)*price + commission
		if pos.Quantity >= 0 {
			// Increasing a long position
			total := float64(pos.Quantity)*pos.AvgCost + float64(qty)*price
			pos.Quantity += qty
			pos.AvgCost = total / float64(pos.Quantity)
		} else {
			// Covering a short position, possibly flipping long
			covered := qty
			if covered > -pos.Quantity {
				covered = -pos.Quantity
			}
			s.realized += float64(covered) * (pos.AvgCost - price)
			pos.Quantity += qty
			if pos.Quantity > 0 {
				pos.AvgCost = price
			}
		}
	} else {
		s.cash += float64(qty)*price - commission
		if pos.Quantity > 0 {
			sold := qty
			if sold > pos.Quantity {
				sold = pos.Quantity
			}
			s.realized += float64(sold) * (price - pos.AvgCost)
			pos.Quantity -= qty
			if pos.Quantity < 0 {
				pos.AvgCost = price
			}
		} else {
			// Opening or increasing a short position
			total := float64(-pos.Quantity)*pos.AvgCost + float64(qty)*price
			pos.Quantity -= qty
			pos.AvgCost = total / float64(-pos.Quantity)
		}
	}

	if pos.Quantity == 0 {
		delete(s.positions, symbol)
	}
}

// CancelOrder rejects cancellation of terminal orders; simulated orders fill
// immediately, so this mirrors a live broker's "too late" response.
func (s *SimBroker) CancelOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return apperrors.ErrNotConnected
	}
	result, ok := s.orders[orderID]
	if !ok {
		return apperrors.ErrOrderNotFound
	}
	if result.Status == models.StatusFilled || result.Failed() {
		return apperrors.NewOrderError(orderID, result.Symbol, string(result.Side), "order already terminal", apperrors.ErrOrderRejected)
	}
	result.Status = models.StatusCancelled
	result.UpdateTime = time.Now()
	return nil
}

// GetOrderStatus returns a copy of a previously submitted order.
func (s *SimBroker) GetOrderStatus(ctx context.Context, orderID string) (*models.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, apperrors.ErrNotConnected
	}
	result, ok := s.orders[orderID]
	if !ok {
		return nil, apperrors.ErrOrderNotFound
	}
	copied := *result
	return &copied, nil
}

// SetMarketPrice seeds or updates a quote.
func (s *SimBroker) SetMarketPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(symbol)] = price
}

// SetCash overrides the cash balance.
func (s *SimBroker) SetCash(cash float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = cash
}

// Reset restores the initial simulated state, keeping the connection flag.
func (s *SimBroker) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = simInitialCash
	s.realized = 0
	s.positions = make(map[string]*simPosition)
	s.orders = make(map[string]*models.TradeResult)
	s.prices = make(map[string]float64)
}

// Ensure SimBroker implements the Broker interface
var _ Broker = (*SimBroker)(nil)
