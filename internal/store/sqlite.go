package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ZhuOS/ai-hedge-fund/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Executed and attempted trades
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		market TEXT NOT NULL,
		side TEXT NOT NULL,
		action TEXT,
		quantity INTEGER NOT NULL,
		fill_price REAL NOT NULL,
		commission REAL DEFAULT 0,
		order_id TEXT,
		status TEXT NOT NULL,
		dry_run INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Risk events raised during validation
	CREATE TABLE IF NOT EXISTS risk_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		message TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- AI decisions with execution outcomes
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		ticker TEXT NOT NULL,
		action TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		confidence REAL NOT NULL,
		reasoning TEXT,
		executed_qty INTEGER DEFAULT 0,
		dry_run INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Validation harness runs
	CREATE TABLE IF NOT EXISTS validation_runs (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		total_tests INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(timestamp);
	CREATE INDEX IF NOT EXISTS idx_risk_events_symbol ON risk_events(symbol);
	CREATE INDEX IF NOT EXISTS idx_risk_events_timestamp ON risk_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_decisions_ticker ON decisions(ticker);
	CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_validation_timestamp ON validation_runs(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LogTrade saves a trade record. A missing ID is generated.
func (s *SQLiteStore) LogTrade(ctx context.Context, trade *models.TradeRecord) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	dryRun := 0
	if trade.DryRun {
		dryRun = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, symbol, market, side, action, quantity, fill_price, commission, order_id, status, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, trade.ID, trade.Timestamp, trade.Symbol, string(trade.Market), string(trade.Side), trade.Action, trade.Quantity, trade.FillPrice, trade.Commission, trade.OrderID, trade.Status, dryRun)
	if err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}
	return nil
}

// GetTrades retrieves trade records matching the filter.
func (s *SQLiteStore) GetTrades(ctx context.Context, filter TradeFilter) ([]models.TradeRecord, error) {
	query := "SELECT id, timestamp, symbol, market, side, action, quantity, fill_price, commission, order_id, status, dry_run FROM trades WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, filter.Side)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.DryRun != nil {
		dryRun := 0
		if *filter.DryRun {
			dryRun = 1
		}
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeRecord
	for rows.Next() {
		var t models.TradeRecord
		var market, side string
		var dryRun int
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &market, &side, &t.Action, &t.Quantity, &t.FillPrice, &t.Commission, &t.OrderID, &t.Status, &dryRun); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Market = models.Market(market)
		t.Side = models.TradeSide(side)
		t.DryRun = dryRun != 0
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

// LogRiskEvent saves a risk event.
func (s *SQLiteStore) LogRiskEvent(ctx context.Context, event *models.RiskEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_events (timestamp, symbol, side, quantity, message, risk_level)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.Timestamp, event.Symbol, string(event.Side), event.Quantity, event.Message, event.RiskLevel)
	if err != nil {
		return fmt.Errorf("failed to log risk event: %w", err)
	}
	return nil
}

// GetRiskEvents retrieves the most recent risk events.
func (s *SQLiteStore) GetRiskEvents(ctx context.Context, limit int) ([]models.RiskEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, symbol, side, quantity, message, risk_level
		FROM risk_events
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query risk events: %w", err)
	}
	defer rows.Close()

	var events []models.RiskEvent
	for rows.Next() {
		var e models.RiskEvent
		var side string
		if err := rows.Scan(&e.Timestamp, &e.Symbol, &side, &e.Quantity, &e.Message, &e.RiskLevel); err != nil {
			return nil, fmt.Errorf("failed to scan risk event: %w", err)
		}
		e.Side = models.TradeSide(side)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating risk events: %w", err)
	}

	return events, nil
}

// SaveDecision journals an AI decision with its execution outcome.
func (s *SQLiteStore) SaveDecision(ctx context.Context, ticker string, decision models.Decision, executedQty int, dryRun bool) error {
	dr := 0
	if dryRun {
		dr = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decisions (id, timestamp, ticker, action, quantity, confidence, reasoning, executed_qty, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), time.Now(), ticker, string(decision.Action), decision.Quantity, decision.Confidence, decision.Reasoning, executedQty, dr)
	if err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}
	return nil
}

// GetDecisions retrieves journaled decisions matching the filter.
func (s *SQLiteStore) GetDecisions(ctx context.Context, filter DecisionFilter) ([]DecisionRecord, error) {
	query := "SELECT id, timestamp, ticker, action, quantity, confidence, reasoning, executed_qty, dry_run FROM decisions WHERE 1=1"
	args := []interface{}{}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, filter.Ticker)
	}
	if filter.Action != "" {
		query += " AND action = ?"
		args = append(args, filter.Action)
	}
	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []DecisionRecord
	for rows.Next() {
		var r DecisionRecord
		var dryRun int
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Ticker, &r.Action, &r.Quantity, &r.Confidence, &r.Reasoning, &r.ExecutedQty, &dryRun); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		r.DryRun = dryRun != 0
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return records, nil
}

// SaveValidationRun persists a validation harness result.
func (s *SQLiteStore) SaveValidationRun(ctx context.Context, run *ValidationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO validation_runs (id, timestamp, total_tests, passed, failed, success_rate, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Timestamp, run.TotalTests, run.Passed, run.Failed, run.SuccessRate, run.Report)
	if err != nil {
		return fmt.Errorf("failed to save validation run: %w", err)
	}
	return nil
}

// GetLatestValidationRun returns the most recent validation run, or nil
// when none has been recorded.
func (s *SQLiteStore) GetLatestValidationRun(ctx context.Context) (*ValidationRun, error) {
	var run ValidationRun
	err := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, total_tests, passed, failed, success_rate, report
		FROM validation_runs
		ORDER BY timestamp DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Timestamp, &run.TotalTests, &run.Passed, &run.Failed, &run.SuccessRate, &run.Report)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validation run: %w", err)
	}
	return &run, nil
}

// Ensure SQLiteStore implements DataStore
var _ DataStore = (*SQLiteStore)(nil)
