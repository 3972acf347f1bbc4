// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// DataStore defines the interface for trade journaling and session history.
type DataStore interface {
	// Trades
	LogTrade(ctx context.Context, trade *models.TradeRecord) error
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error)

	// Risk events
	LogRiskEvent(ctx context.Context, event *models.RiskEvent) error
	GetRiskEvents(ctx context.Context, limit int) ([]models.RiskEvent, error)

	// AI decisions
	SaveDecision(ctx context.Context, ticker string, decision models.Decision, executedQty int, dryRun bool) error
	GetDecisions(ctx context.Context, filter DecisionFilter) ([]DecisionRecord, error)

	// Validation runs
	SaveValidationRun(ctx context.Context, run *ValidationRun) error
	GetLatestValidationRun(ctx context.Context) (*ValidationRun, error)

	// Lifecycle
	Close() error
}

// TradeFilter narrows trade queries.
type TradeFilter struct {
	Symbol    string
	Side      string
	StartDate time.Time
	EndDate   time.Time
	DryRun    *bool
	Limit     int
}

// DecisionFilter narrows decision queries.
type DecisionFilter struct {
	Ticker    string
	Action    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// DecisionRecord is a journaled AI decision with its execution outcome.
type DecisionRecord struct {
	ID          string
	Timestamp   time.Time
	Ticker      string
	Action      string
	Quantity    int
	Confidence  float64
	Reasoning   string
	ExecutedQty int
	DryRun      bool
}

// ValidationRun is a persisted validation harness result.
type ValidationRun struct {
	ID          string
	Timestamp   time.Time
	TotalTests  int
	Passed      int
	Failed      int
	SuccessRate float64
	Report      string // full JSON report
}
