package broker

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/ZhuOS/ai-hedge-fund/internal/errors"
	"github.com/ZhuOS/ai-hedge-fund/internal/gateway"
	"github.com/ZhuOS/ai-hedge-fund/internal/models"
	"github.com/ZhuOS/ai-hedge-fund/pkg/utils"
)

// The gateway throttles order placement to 15 requests per 30 seconds.
var orderLimit = rate.Every(2 * time.Second)

const orderBurst = 15

// Market orders usually fill within a second; SubmitOrder polls order
// status inside this window so the caller sees the fill synchronously.
const (
	fillPollWindow   = 3 * time.Second
	fillPollInterval = 500 * time.Millisecond
)

// FutuConfig holds settings for the networked broker.
type FutuConfig struct {
	Host          string
	Port          int
	AccountID     string
	TradePassword string
	Simulate      bool // route orders to the paper environment on the gateway
	Logger        zerolog.Logger
}

// FutuBroker executes against a Futu OpenD gateway. Account and order calls
// are scoped to a single trading account; quote calls subscribe lazily.
type FutuBroker struct {
	conn    *gateway.Conn
	logger  zerolog.Logger
	limiter *rate.Limiter

	accountID uint64
	tradePwd  string
	trdEnv    int
	trdMarket int

	mu         sync.RWMutex
	unlocked   bool
	subscribed map[string]bool
}

// NewFutuBroker creates a broker client for the given gateway.
func NewFutuBroker(cfg FutuConfig) (*FutuBroker, error) {
	accountID := uint64(0)
	if cfg.AccountID != "" {
		parsed, err := strconv.ParseUint(cfg.AccountID, 10, 64)
		if err != nil {
			return nil, apperrors.NewValidationError("account_id", cfg.AccountID, "must be numeric")
		}
		accountID = parsed
	}

	trdEnv := gateway.TrdEnvReal
	if cfg.Simulate {
		trdEnv = gateway.TrdEnvSimulate
	}

	return &FutuBroker{
		conn: gateway.New(gateway.Config{
			Host:   cfg.Host,
			Port:   cfg.Port,
			Logger: cfg.Logger,
		}),
		logger:     cfg.Logger,
		limiter:    rate.NewLimiter(orderLimit, orderBurst),
		accountID:  accountID,
		tradePwd:   cfg.TradePassword,
		trdEnv:     trdEnv,
		trdMarket:  gateway.TrdMarketUS,
		subscribed: make(map[string]bool),
	}, nil
}

// Connect dials the gateway, resolves the trading account and unlocks
// real-money trading when a trade password is configured.
func (f *FutuBroker) Connect(ctx context.Context) error {
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		return f.conn.Dial(ctx)
	})
	if err != nil {
		return err
	}

	if err := f.resolveAccount(ctx); err != nil {
		f.conn.Close()
		return err
	}

	if f.trdEnv == gateway.TrdEnvReal && f.tradePwd != "" {
		if err := f.unlockTrade(ctx); err != nil {
			f.conn.Close()
			return err
		}
	}

	return nil
}

// Disconnect closes the gateway connection. Safe to call repeatedly.
func (f *FutuBroker) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.unlocked = false
	f.subscribed = make(map[string]bool)
	f.mu.Unlock()
	return f.conn.Close()
}

// IsConnected reports whether the gateway connection is up.
func (f *FutuBroker) IsConnected() bool {
	return f.conn.Connected()
}

// resolveAccount picks the trading account (when none is configured) and
// learns its authorized trade market for the request headers.
func (f *FutuBroker) resolveAccount(ctx context.Context) error {
	var accs gateway.GetAccListS2C
	err := f.conn.Call(ctx, gateway.ProtoTrdGetAccList, gateway.GetAccListC2S{UserID: f.conn.UserID()}, &accs)
	if err != nil {
		return fmt.Errorf("listing trading accounts: %w", err)
	}

	for _, acc := range accs.AccList {
		if f.accountID != 0 {
			if acc.AccID != f.accountID {
				continue
			}
		} else if acc.TrdEnv != f.trdEnv {
			continue
		}

		f.accountID = acc.AccID
		if len(acc.TrdMarketAuthList) > 0 {
			f.trdMarket = acc.TrdMarketAuthList[0]
		}
		f.logger.Info().
			Uint64("account_id", acc.AccID).
			Int("trd_market", f.trdMarket).
			Msg("Resolved trading account")
		return nil
	}

	if f.accountID != 0 {
		f.logger.Warn().Uint64("account_id", f.accountID).Msg("Configured account not in gateway account list")
		return nil
	}
	return apperrors.NewBrokerError("NO_ACCOUNT", "no trading account for the requested environment", nil)
}

func (f *FutuBroker) unlockTrade(ctx context.Context) error {
	sum := md5.Sum([]byte(f.tradePwd))
	err := f.conn.Call(ctx, gateway.ProtoTrdUnlockTrade, gateway.UnlockTradeC2S{
		Unlock: true,
		PwdMD5: hex.EncodeToString(sum[:]),
	}, nil)
	if err != nil {
		return apperrors.Wrap(err, "unlocking trade")
	}
	f.mu.Lock()
	f.unlocked = true
	f.mu.Unlock()
	return nil
}

func (f *FutuBroker) trdHeader() gateway.TrdHeader {
	return gateway.TrdHeader{
		TrdEnv:    f.trdEnv,
		AccID:     f.accountID,
		TrdMarket: f.trdMarket,
	}
}

// GetAccountInfo fetches the funds snapshot for the trading account.
func (f *FutuBroker) GetAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	if !f.IsConnected() {
		return nil, apperrors.ErrNotConnected
	}

	var funds gateway.GetFundsS2C
	err := f.conn.Call(ctx, gateway.ProtoTrdGetFunds, gateway.GetFundsC2S{Header: f.trdHeader()}, &funds)
	if err != nil {
		return nil, fmt.Errorf("fetching funds: %w", err)
	}

	return &models.AccountInfo{
		AccountID:     strconv.FormatUint(f.accountID, 10),
		TotalAssets:   funds.Funds.TotalAssets,
		Cash:          funds.Funds.Cash,
		MarketValue:   funds.Funds.MarketVal,
		UnrealizedPnL: funds.Funds.UnrealizedPL,
		RealizedPnL:   funds.Funds.RealizedPL,
		BuyingPower:   funds.Funds.Power,
	}, nil
}

// GetPositions fetches open positions for the trading account.
func (f *FutuBroker) GetPositions(ctx context.Context) ([]models.Position, error) {
	if !f.IsConnected() {
		return nil, apperrors.ErrNotConnected
	}

	var list gateway.GetPositionListS2C
	err := f.conn.Call(ctx, gateway.ProtoTrdGetPositions, gateway.GetPositionListC2S{Header: f.trdHeader()}, &list)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}

	positions := make([]models.Position, 0, len(list.PositionList))
	for _, p := range list.PositionList {
		positions = append(positions, models.Position{
			Symbol:        p.Code,
			Quantity:      int(p.Qty),
			AvgCost:       p.CostPrice,
			MarketValue:   p.Val,
			UnrealizedPnL: p.PLVal,
			MarketPrice:   p.Price,
		})
	}
	return positions, nil
}

// GetMarketPrice fetches the current price for a symbol, subscribing to the
// quote feed on first use.
func (f *FutuBroker) GetMarketPrice(ctx context.Context, symbol string) (float64, error) {
	if !f.IsConnected() {
		return 0, apperrors.ErrNotConnected
	}

	sec, _, err := securityFor(symbol)
	if err != nil {
		return 0, err
	}
	if err := f.ensureSubscribed(ctx, sec); err != nil {
		return 0, err
	}

	var quotes gateway.GetBasicQotS2C
	err = f.conn.Call(ctx, gateway.ProtoQotGetBasicQot, gateway.GetBasicQotC2S{
		SecurityList: []gateway.Security{sec},
	}, &quotes)
	if err != nil {
		return 0, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}
	if len(quotes.BasicQotList) == 0 || quotes.BasicQotList[0].CurPrice <= 0 {
		return 0, apperrors.NewDataError("quote", symbol, "empty quote", apperrors.ErrPriceUnavailable)
	}
	return quotes.BasicQotList[0].CurPrice, nil
}

func (f *FutuBroker) ensureSubscribed(ctx context.Context, sec gateway.Security) error {
	key := fmt.Sprintf("%d:%s", sec.Market, sec.Code)

	f.mu.RLock()
	done := f.subscribed[key]
	f.mu.RUnlock()
	if done {
		return nil
	}

	err := f.conn.Call(ctx, gateway.ProtoQotSub, gateway.SubC2S{
		SecurityList: []gateway.Security{sec},
		SubTypeList:  []int{gateway.SubTypeBasic},
		IsSubOrUnSub: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("subscribing %s: %w", sec.Code, err)
	}

	f.mu.Lock()
	f.subscribed[key] = true
	f.mu.Unlock()
	return nil
}

// SubmitOrder places an order through the gateway. Failures are reported in
// the result status, never as a panic or error.
func (f *FutuBroker) SubmitOrder(ctx context.Context, order *models.TradeOrder) *models.TradeResult {
	now := time.Now()
	result := &models.TradeResult{
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Status:     models.StatusPending,
		SubmitTime: now,
	}

	if !f.IsConnected() {
		result.Status = models.StatusFailed
		result.ErrorMsg = "broker not connected"
		return result
	}

	sec, secMarket, err := securityFor(order.Symbol)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMsg = err.Error()
		return result
	}

	if err := f.limiter.Wait(ctx); err != nil {
		result.Status = models.StatusFailed
		result.ErrorMsg = fmt.Sprintf("order rate limit: %v", err)
		return result
	}

	c2s := gateway.PlaceOrderC2S{
		PacketID: gateway.PacketID{
			ConnID:   f.conn.ConnID(),
			SerialNo: f.conn.NextSerial(),
		},
		Header:    f.trdHeader(),
		TrdSide:   gatewaySide(order.Side),
		OrderType: gatewayOrderType(order.Type),
		Code:      sec.Code,
		Qty:       float64(order.Quantity),
		Price:     order.Price,
		SecMarket: secMarket,
	}

	var placed gateway.PlaceOrderS2C
	if err := f.conn.Call(ctx, gateway.ProtoTrdPlaceOrder, c2s, &placed); err != nil {
		result.Status = models.StatusRejected
		result.ErrorMsg = err.Error()
		f.logger.Warn().Err(err).Str("symbol", order.Symbol).Msg("Order rejected by gateway")
		return result
	}

	// The gateway acknowledges acceptance only; fills surface through the
	// order list. Poll briefly so market orders report their fill here.
	result.OrderID = strconv.FormatUint(placed.OrderID, 10)
	result.Status = models.StatusSubmitted
	result.UpdateTime = time.Now()
	return f.awaitFill(ctx, result)
}

func (f *FutuBroker) awaitFill(ctx context.Context, submitted *models.TradeResult) *models.TradeResult {
	deadline := time.Now().Add(fillPollWindow)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return submitted
		case <-time.After(fillPollInterval):
		}

		status, err := f.GetOrderStatus(ctx, submitted.OrderID)
		if err != nil {
			continue
		}
		status.Symbol = submitted.Symbol
		if status.SubmitTime.IsZero() {
			status.SubmitTime = submitted.SubmitTime
		}
		if status.FilledQuantity > 0 || status.Failed() {
			return status
		}
		submitted.Status = status.Status
		submitted.UpdateTime = time.Now()
	}
	return submitted
}

// CancelOrder cancels an acknowledged order by ID.
func (f *FutuBroker) CancelOrder(ctx context.Context, orderID string) error {
	if !f.IsConnected() {
		return apperrors.ErrNotConnected
	}

	id, err := strconv.ParseUint(orderID, 10, 64)
	if err != nil {
		return apperrors.NewOrderError(orderID, "", "", "malformed order id", apperrors.ErrInvalidOrder)
	}

	err = f.conn.Call(ctx, gateway.ProtoTrdModifyOrder, gateway.ModifyOrderC2S{
		PacketID: gateway.PacketID{
			ConnID:   f.conn.ConnID(),
			SerialNo: f.conn.NextSerial(),
		},
		Header:        f.trdHeader(),
		OrderID:       id,
		ModifyOrderOp: gateway.ModifyOrderOpCancel,
	}, nil)
	if err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// GetOrderStatus queries one order by ID.
func (f *FutuBroker) GetOrderStatus(ctx context.Context, orderID string) (*models.TradeResult, error) {
	if !f.IsConnected() {
		return nil, apperrors.ErrNotConnected
	}

	id, err := strconv.ParseUint(orderID, 10, 64)
	if err != nil {
		return nil, apperrors.NewOrderError(orderID, "", "", "malformed order id", apperrors.ErrInvalidOrder)
	}

	var list gateway.GetOrderListS2C
	err = f.conn.Call(ctx, gateway.ProtoTrdGetOrderList, gateway.GetOrderListC2S{
		Header:           f.trdHeader(),
		FilterConditions: &gateway.OrderFilter{IDList: []uint64{id}},
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("querying order %s: %w", orderID, err)
	}
	if len(list.OrderList) == 0 {
		return nil, apperrors.ErrOrderNotFound
	}

	return convertOrder(list.OrderList[0]), nil
}

func convertOrder(o gateway.TrdOrder) *models.TradeResult {
	result := &models.TradeResult{
		OrderID:        strconv.FormatUint(o.OrderID, 10),
		Symbol:         o.Code,
		Side:           models.SideBuy,
		Quantity:       int(o.Qty),
		FilledQuantity: int(o.FillQty),
		AvgPrice:       o.FillAvgPrice,
		Status:         mapOrderStatus(o.OrderStatus),
		SubmitTime:     parseGatewayTime(o.CreateTime),
		UpdateTime:     parseGatewayTime(o.UpdateTime),
	}
	if o.TrdSide == gateway.TrdSideSell {
		result.Side = models.SideSell
	}
	if result.Status == models.StatusRejected || result.Status == models.StatusFailed {
		result.ErrorMsg = o.LastErrMsg
	}
	return result
}

func mapOrderStatus(status int) models.OrderStatus {
	switch status {
	case gateway.OrderStatusFilledAll:
		return models.StatusFilled
	case gateway.OrderStatusFilledPart:
		return models.StatusPartiallyFilled
	case gateway.OrderStatusCancelledAll, gateway.OrderStatusCancelledPart:
		return models.StatusCancelled
	case gateway.OrderStatusFailed, gateway.OrderStatusDisabled, gateway.OrderStatusDeleted:
		return models.StatusFailed
	case gateway.OrderStatusSubmitted, gateway.OrderStatusSubmitting, gateway.OrderStatusWaitingSubmit:
		return models.StatusSubmitted
	default:
		return models.StatusPending
	}
}

func parseGatewayTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func gatewaySide(side models.TradeSide) int {
	if side == models.SideSell {
		return gateway.TrdSideSell
	}
	return gateway.TrdSideBuy
}

func gatewayOrderType(orderType models.OrderType) int {
	switch orderType {
	case models.OrderTypeLimit:
		return gateway.OrderTypeNormal
	case models.OrderTypeStop:
		return gateway.OrderTypeStop
	case models.OrderTypeStopLimit:
		return gateway.OrderTypeStopLimit
	default:
		return gateway.OrderTypeMarket
	}
}

// securityFor maps a plain symbol to the gateway security identifier and
// the matching order-side market code.
func securityFor(symbol string) (gateway.Security, int, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return gateway.Security{}, 0, apperrors.NewValidationError("symbol", symbol, "empty symbol")
	}

	switch utils.DetectMarket(symbol) {
	case models.MarketHK:
		code := symbol
		for len(code) < 5 {
			code = "0" + code
		}
		return gateway.Security{Market: gateway.QotMarketHK, Code: code}, gateway.SecMarketHK, nil
	case models.MarketCN:
		if strings.HasPrefix(symbol, "6") {
			return gateway.Security{Market: gateway.QotMarketCNSH, Code: symbol}, gateway.SecMarketCNSH, nil
		}
		return gateway.Security{Market: gateway.QotMarketCNSZ, Code: symbol}, gateway.SecMarketCNSZ, nil
	default:
		return gateway.Security{Market: gateway.QotMarketUS, Code: strings.ToUpper(symbol)}, gateway.SecMarketUS, nil
	}
}

// Ensure FutuBroker implements the Broker interface
var _ Broker = (*FutuBroker)(nil)
