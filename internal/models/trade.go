package models

import "time"

// TradeRecord represents an executed trade as journaled to the store.
type TradeRecord struct {
	ID         string
	Timestamp  time.Time
	Symbol     string
	Market     Market
	Side       TradeSide
	Action     Action
	Quantity   int
	FillPrice  float64
	Commission float64
	OrderID    string
	Status     OrderStatus
	DryRun     bool
}

// FailedTrade represents one entry in the executor's bounded failure log.
type FailedTrade struct {
	Timestamp    time.Time
	Ticker       string
	Action       Action
	RequestedQty int
	ExecutedQty  int
	Price        float64
	Error        string
}

// RiskEvent represents a risk evaluation worth remembering: any check
// outcome above the lowest severity, pass or fail.
type RiskEvent struct {
	Timestamp time.Time
	Symbol    string
	Side      TradeSide
	Quantity  int
	Message   string
	RiskLevel string
}
