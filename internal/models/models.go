// Package models provides domain models for the trading application.
package models

// Market represents the exchange region a symbol trades on.
type Market string

const (
	MarketHK Market = "HK"
	MarketUS Market = "US"
	MarketCN Market = "CN"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "OPEN"
	MarketPreOpen    MarketStatus = "PRE_OPEN"
	MarketLunchBreak MarketStatus = "LUNCH_BREAK"
	MarketClosed     MarketStatus = "CLOSED"
)

// AccountInfo represents a point-in-time snapshot of a brokerage account.
// Snapshots are re-fetched from the broker, never mutated locally.
type AccountInfo struct {
	AccountID     string
	TotalAssets   float64
	Cash          float64
	MarketValue   float64
	UnrealizedPnL float64
	RealizedPnL   float64
	BuyingPower   float64
}

// Position represents a per-symbol holding reported by the broker.
// Quantity is signed: positive for long, negative for short.
type Position struct {
	Symbol        string
	Quantity      int
	AvgCost       float64
	MarketValue   float64
	UnrealizedPnL float64
	MarketPrice   float64
}
