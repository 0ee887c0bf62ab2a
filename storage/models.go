package storage

// Direction 买卖方向
const (
	DirectionBuy  = "BUY"
	DirectionSell = "SELL"
)

// OrderType 订单类型
const (
	OrderTypeAggressive = "AGGRESSIVE" // 对价单：按对手方一档价格立即成交
	OrderTypeLimit      = "LIMIT"      // 限价单
)

// OrderStatus 订单状态。订单单调流转到终态，永不删除：
// CREATED -> REJECTED | NEW -> FILLED | CANCELED
const (
	OrderStatusCreated       = "CREATED"
	OrderStatusRejected      = "REJECTED"
	OrderStatusNew           = "NEW"
	OrderStatusFilled        = "FILLED"
	OrderStatusCancelPending = "CANCEL_PENDING"
	OrderStatusCanceled      = "CANCELED"
)

// 事件类型
const (
	EventOrder           = "ORDER_EVENT"
	EventTrade           = "TRADE_EVENT"
	EventRiskDecision    = "RISK_DECISION"
	EventRiskWarn        = "RISK_WARN"
	EventKillSwitch      = "KILL_SWITCH"
	EventTPlus1Unfreeze  = "TPLUS1_UNFREEZE"
	EventDayStart        = "DAY_START_SNAPSHOT"
	EventDailyPnl        = "DAILY_PNL"
	EventEngineError     = "ENGINE_ERROR"
)

// 系统状态键
const (
	StateKillSwitch          = "kill_switch"
	StateKillSwitchUpdatedAt = "kill_switch_updated_at"
	StateLastUnfreezeDate    = "last_unfreeze_date"
	StateDayStartDate        = "day_start_date"
	StateDayStartValue       = "day_start_value"
	StateLastDailyPnlDate    = "last_daily_pnl_date"
)

// Account 账户模型（单例，id 固定为1）
type Account struct {
	Cash       float64 `json:"cash"`
	TotalValue float64 `json:"total_value"`
	UpdatedAt  string  `json:"updated_at"`
}

// Position 持仓模型。AvailableQuantity <= TotalQuantity 恒成立（T+1）
type Position struct {
	Symbol            string  `json:"symbol"`
	TotalQuantity     int64   `json:"total_quantity"`
	AvailableQuantity int64   `json:"available_quantity"`
	AvgCost           float64 `json:"avg_cost"`
	UpdatedAt         string  `json:"updated_at"`
}

// Order 订单模型
type Order struct {
	ClientOrderID  string  `json:"client_order_id"`
	BrokerOrderID  string  `json:"broker_order_id,omitempty"`
	SignalID       string  `json:"signal_id,omitempty"`
	Symbol         string  `json:"symbol"`
	Direction      string  `json:"direction"`
	OrderType      string  `json:"order_type"`
	Quantity       int64   `json:"quantity"`
	Price          float64 `json:"price"`
	TimeInForce    string  `json:"time_in_force"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	Status         string  `json:"status"`
	CumFilledQty   int64   `json:"cum_filled_qty"`
	RejectCode     string  `json:"reject_code,omitempty"`
	RejectReason   string  `json:"reject_reason,omitempty"`
	ExpiresAt      string  `json:"expires_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// Fill 成交模型（不可变，全量成交模式下每单至多一笔）
type Fill struct {
	FillID        string  `json:"fill_id"`
	ClientOrderID string  `json:"client_order_id"`
	BrokerTradeID string  `json:"broker_trade_id,omitempty"`
	BrokerOrderID string  `json:"broker_order_id,omitempty"`
	Symbol        string  `json:"symbol"`
	Direction     string  `json:"direction"`
	Quantity      int64   `json:"quantity"`
	Price         float64 `json:"price"`
	Commission    float64 `json:"commission"`
	StampTax      float64 `json:"stamp_tax"`
	TransferFee   float64 `json:"transfer_fee"`
	TradeTime     string  `json:"trade_time"`
	CreatedAt     string  `json:"created_at"`
}

// DailyPnl 每日盈亏模型（按日期 upsert）
type DailyPnl struct {
	Date          string  `json:"date"`
	StartValue    float64 `json:"start_value"`
	EndValue      float64 `json:"end_value"`
	RealizedPnl   float64 `json:"realized_pnl"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	Commission    float64 `json:"commission"`
	Trades        int     `json:"trades"`
	CreatedAt     string  `json:"created_at"`
}

// Event 审计事件（只追加，历史重建的唯一来源）
type Event struct {
	ID        int64                  `json:"id"`
	EventType string                 `json:"event_type"`
	RelatedID string                 `json:"related_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt string                 `json:"created_at"`
}
