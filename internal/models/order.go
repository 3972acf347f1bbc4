package models

import (
	"fmt"
	"time"
)

// TradeSide represents the side of an order.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OrderStatus represents the lifecycle state of a submitted order.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusFilled          OrderStatus = "FILLED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusFailed          OrderStatus = "FAILED"
)

// TradeOrder represents a candidate order instruction. Orders are immutable
// once constructed; use NewTradeOrder so the quantity and price invariants
// hold.
type TradeOrder struct {
	Symbol      string
	Side        TradeSide
	Quantity    int
	Type        OrderType
	Price       float64 // 0 means unset; required for LIMIT/STOP variants
	Market      Market
	TimeInForce string
}

// NewTradeOrder builds a validated order. Quantity must be positive and
// price-carrying order types must carry a positive price.
func NewTradeOrder(symbol string, side TradeSide, quantity int, orderType OrderType, price float64, market Market) (*TradeOrder, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("order quantity must be positive, got %d", quantity)
	}
	switch orderType {
	case OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		if price <= 0 {
			return nil, fmt.Errorf("%s order requires a positive price", orderType)
		}
	}
	return &TradeOrder{
		Symbol:      symbol,
		Side:        side,
		Quantity:    quantity,
		Type:        orderType,
		Price:       price,
		Market:      market,
		TimeInForce: "DAY",
	}, nil
}

// Notional returns the order value at the given reference price, preferring
// the order's own limit price when set.
func (o *TradeOrder) Notional(referencePrice float64) float64 {
	price := o.Price
	if price <= 0 {
		price = referencePrice
	}
	return float64(o.Quantity) * price
}

// TradeResult represents the outcome of submitting an order.
// FilledQuantity never exceeds Quantity; AvgPrice is zero when nothing
// filled; ErrorMsg is set only for REJECTED and FAILED results.
type TradeResult struct {
	OrderID        string
	Symbol         string
	Side           TradeSide
	Quantity       int
	FilledQuantity int
	AvgPrice       float64
	Status         OrderStatus
	SubmitTime     time.Time
	UpdateTime     time.Time
	ErrorMsg       string
	Commission     float64
}

// Successful reports whether the order resulted in at least a partial fill.
func (r *TradeResult) Successful() bool {
	return r.Status == StatusFilled || r.Status == StatusPartiallyFilled
}

// Failed reports whether the order terminated without any fill.
func (r *TradeResult) Failed() bool {
	return r.Status == StatusRejected || r.Status == StatusFailed || r.Status == StatusCancelled
}
