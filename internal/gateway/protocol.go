package gateway

// Proto IDs for the OpenD requests this client issues.
const (
	ProtoInitConnect     = 1001
	ProtoKeepAlive       = 1004
	ProtoTrdGetAccList   = 2001
	ProtoTrdUnlockTrade  = 2005
	ProtoTrdGetFunds     = 2101
	ProtoTrdGetPositions = 2102
	ProtoTrdGetOrderList = 2201
	ProtoTrdPlaceOrder   = 2202
	ProtoTrdModifyOrder  = 2205
	ProtoQotSub          = 3001
	ProtoQotGetBasicQot  = 3004
)

// Trading environment.
const (
	TrdEnvSimulate = 0
	TrdEnvReal     = 1
)

// Trading markets.
const (
	TrdMarketHK = 1
	TrdMarketUS = 2
	TrdMarketCN = 3
)

// Quote markets used in security identifiers.
const (
	QotMarketHK   = 1
	QotMarketUS   = 11
	QotMarketCNSH = 21
	QotMarketCNSZ = 22
)

// Security markets on order placement.
const (
	SecMarketHK   = 1
	SecMarketUS   = 2
	SecMarketCNSH = 31
	SecMarketCNSZ = 32
)

// Order sides.
const (
	TrdSideBuy  = 1
	TrdSideSell = 2
)

// Order types.
const (
	OrderTypeNormal    = 1 // limit
	OrderTypeMarket    = 2
	OrderTypeStop      = 10
	OrderTypeStopLimit = 11
)

// Modify operations for Trd_ModifyOrder.
const (
	ModifyOrderOpNormal = 1
	ModifyOrderOpCancel = 2
)

// Order status codes reported by the gateway.
const (
	OrderStatusUnsubmitted   = 0
	OrderStatusWaitingSubmit = 1
	OrderStatusSubmitting    = 2
	OrderStatusSubmitted     = 5
	OrderStatusFilledPart    = 10
	OrderStatusFilledAll     = 11
	OrderStatusCancelledPart = 14
	OrderStatusCancelledAll  = 15
	OrderStatusFailed        = 21
	OrderStatusDisabled      = 22
	OrderStatusDeleted       = 23
)

// RetTypeSucceed is the retType value for a successful response.
const RetTypeSucceed = 0

// request is the outer envelope for every c2s payload.
type request struct {
	C2S interface{} `json:"c2s"`
}

// Security identifies an instrument on the quote side.
type Security struct {
	Market int    `json:"market"`
	Code   string `json:"code"`
}

// TrdHeader scopes a trade request to an environment, account and market.
type TrdHeader struct {
	TrdEnv    int    `json:"trdEnv"`
	AccID     uint64 `json:"accID"`
	TrdMarket int    `json:"trdMarket"`
}

// InitConnectC2S opens the session.
type InitConnectC2S struct {
	ClientVer  int    `json:"clientVer"`
	ClientID   string `json:"clientID"`
	RecvNotify bool   `json:"recvNotify"`
}

// InitConnectS2C is the session handshake result.
type InitConnectS2C struct {
	ServerVer         int    `json:"serverVer"`
	LoginUserID       uint64 `json:"loginUserID"`
	ConnID            uint64 `json:"connID"`
	ConnAESKey        string `json:"connAESKey"`
	KeepAliveInterval int    `json:"keepAliveInterval"`
}

// KeepAliveC2S is the periodic heartbeat.
type KeepAliveC2S struct {
	Time int64 `json:"time"`
}

// KeepAliveS2C echoes the server time.
type KeepAliveS2C struct {
	Time int64 `json:"time"`
}

// GetAccListC2S requests the trading accounts visible to this login.
type GetAccListC2S struct {
	UserID uint64 `json:"userID"`
}

// TrdAcc describes one trading account.
type TrdAcc struct {
	AccID             uint64 `json:"accID"`
	TrdEnv            int    `json:"trdEnv"`
	TrdMarketAuthList []int  `json:"trdMarketAuthList"`
}

// GetAccListS2C lists the trading accounts.
type GetAccListS2C struct {
	AccList []TrdAcc `json:"accList"`
}

// UnlockTradeC2S unlocks real-money trading with an MD5 password digest.
type UnlockTradeC2S struct {
	Unlock bool   `json:"unlock"`
	PwdMD5 string `json:"pwdMD5"`
}

// GetFundsC2S requests account funds.
type GetFundsC2S struct {
	Header TrdHeader `json:"header"`
}

// Funds is the account funds snapshot.
type Funds struct {
	Power        float64 `json:"power"`
	TotalAssets  float64 `json:"totalAssets"`
	Cash         float64 `json:"cash"`
	MarketVal    float64 `json:"marketVal"`
	UnrealizedPL float64 `json:"unrealizedPL"`
	RealizedPL   float64 `json:"realizedPL"`
}

// GetFundsS2C carries the funds snapshot.
type GetFundsS2C struct {
	Header TrdHeader `json:"header"`
	Funds  Funds     `json:"funds"`
}

// GetPositionListC2S requests open positions.
type GetPositionListC2S struct {
	Header TrdHeader `json:"header"`
}

// TrdPosition is one open position as reported by the gateway.
type TrdPosition struct {
	PositionID   uint64  `json:"positionID"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Qty          float64 `json:"qty"`
	CanSellQty   float64 `json:"canSellQty"`
	Price        float64 `json:"price"`
	CostPrice    float64 `json:"costPrice"`
	Val          float64 `json:"val"`
	PLVal        float64 `json:"plVal"`
	PositionSide int     `json:"positionSide"`
}

// GetPositionListS2C lists open positions.
type GetPositionListS2C struct {
	Header       TrdHeader     `json:"header"`
	PositionList []TrdPosition `json:"positionList"`
}

// PlaceOrderC2S submits an order.
type PlaceOrderC2S struct {
	PacketID  PacketID  `json:"packetID"`
	Header    TrdHeader `json:"header"`
	TrdSide   int       `json:"trdSide"`
	OrderType int       `json:"orderType"`
	Code      string    `json:"code"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price,omitempty"`
	SecMarket int       `json:"secMarket"`
}

// PacketID makes write requests idempotent on the gateway side.
type PacketID struct {
	ConnID   uint64 `json:"connID"`
	SerialNo uint32 `json:"serialNo"`
}

// PlaceOrderS2C acknowledges an order submission.
type PlaceOrderS2C struct {
	Header  TrdHeader `json:"header"`
	OrderID uint64    `json:"orderID"`
}

// ModifyOrderC2S modifies or cancels an order.
type ModifyOrderC2S struct {
	PacketID      PacketID  `json:"packetID"`
	Header        TrdHeader `json:"header"`
	OrderID       uint64    `json:"orderID"`
	ModifyOrderOp int       `json:"modifyOrderOp"`
}

// ModifyOrderS2C acknowledges a modify request.
type ModifyOrderS2C struct {
	Header  TrdHeader `json:"header"`
	OrderID uint64    `json:"orderID"`
}

// OrderFilter narrows Trd_GetOrderList results.
type OrderFilter struct {
	IDList []uint64 `json:"idList,omitempty"`
}

// GetOrderListC2S requests orders, optionally filtered by ID.
type GetOrderListC2S struct {
	Header           TrdHeader    `json:"header"`
	FilterConditions *OrderFilter `json:"filterConditions,omitempty"`
}

// TrdOrder is one order as reported by the gateway.
type TrdOrder struct {
	OrderID      uint64  `json:"orderID"`
	OrderType    int     `json:"orderType"`
	OrderStatus  int     `json:"orderStatus"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	TrdSide      int     `json:"trdSide"`
	Qty          float64 `json:"qty"`
	Price        float64 `json:"price"`
	FillQty      float64 `json:"fillQty"`
	FillAvgPrice float64 `json:"fillAvgPrice"`
	CreateTime   string  `json:"createTime"`
	UpdateTime   string  `json:"updateTime"`
	LastErrMsg   string  `json:"lastErrMsg"`
}

// GetOrderListS2C lists orders.
type GetOrderListS2C struct {
	Header    TrdHeader  `json:"header"`
	OrderList []TrdOrder `json:"orderList"`
}

// SubC2S subscribes to quote pushes for the given securities.
type SubC2S struct {
	SecurityList     []Security `json:"securityList"`
	SubTypeList      []int      `json:"subTypeList"`
	IsSubOrUnSub     bool       `json:"isSubOrUnSub"`
	IsRegOrUnRegPush bool       `json:"isRegOrUnRegPush"`
}

// GetBasicQotC2S requests basic quotes for subscribed securities.
type GetBasicQotC2S struct {
	SecurityList []Security `json:"securityList"`
}

// BasicQot is a basic quote snapshot.
type BasicQot struct {
	Security  Security `json:"security"`
	CurPrice  float64  `json:"curPrice"`
	OpenPrice float64  `json:"openPrice"`
	HighPrice float64  `json:"highPrice"`
	LowPrice  float64  `json:"lowPrice"`
	Volume    int64    `json:"volume"`
}

// GetBasicQotS2C carries basic quotes.
type GetBasicQotS2C struct {
	BasicQotList []BasicQot `json:"basicQotList"`
}

// SubTypeBasic is the basic-quote subscription type.
const SubTypeBasic = 1
