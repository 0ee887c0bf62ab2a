package risk

import (
	"fmt"
	"math"
	"time"

	"papermesh/fees"
	"papermesh/market"
	"papermesh/storage"
)

// RejectCode 拒单代码（闭集，风控契约可穷举测试）
type RejectCode string

const (
	RejectKillSwitch           RejectCode = "KILL_SWITCH"
	RejectOutOfSession         RejectCode = "OUT_OF_SESSION"
	RejectQuoteStale           RejectCode = "QUOTE_STALE"
	RejectQuoteInvalid         RejectCode = "QUOTE_INVALID"
	RejectInvalidQuantity      RejectCode = "INVALID_QUANTITY"
	RejectInsufficientCash     RejectCode = "INSUFFICIENT_CASH"
	RejectInsufficientSellable RejectCode = "INSUFFICIENT_SELLABLE"
	RejectPriceDeviation       RejectCode = "PRICE_DEVIATION"
	RejectLimitUpBuyBlocked    RejectCode = "LIMIT_UP_BUY_BLOCKED"
	RejectLimitDownSellBlocked RejectCode = "LIMIT_DOWN_SELL_BLOCKED"
	RejectSpreadTooWide        RejectCode = "SPREAD_TOO_WIDE"
	RejectOrderValueLimit      RejectCode = "ORDER_VALUE_LIMIT"
	RejectDailyTradeLimit      RejectCode = "DAILY_TRADE_LIMIT"
	RejectSymbolNotSupported   RejectCode = "SYMBOL_NOT_SUPPORTED"
)

// Decision 风控决策。拒单以数据形式返回，不抛错误。
type Decision struct {
	Approved     bool
	RejectCode   RejectCode
	RejectReason string
}

func reject(code RejectCode, reason string) Decision {
	return Decision{Approved: false, RejectCode: code, RejectReason: reason}
}

// QuoteSnapshot 风控所需的行情快照（买卖一档缺失时调用方已回退为最新价）
type QuoteSnapshot struct {
	QuoteTime time.Time
	PrevClose float64
	Last      float64
	Bid1      float64
	Ask1      float64
}

// Input 风控输入
type Input struct {
	Symbol            string
	Direction         string
	Quantity          int64
	OrderType         string
	Price             float64 // 拟委托价（已按最小报价单位取整）
	Quote             QuoteSnapshot
	Cash              float64
	AvailableQuantity int64
	KillSwitch        bool
	OrderValueLimit   float64
	DailyTradesCount  int // 当日已成交笔数
	DailyTradesWarn   int
	DailyTradesReject int
	QuoteMaxAge       time.Duration
	AllowOutOfSession bool
	Now               time.Time
}

// ShouldWarn 判断是否需要记录当日成交笔数告警（不拒单，由调用方落事件）
func (in *Input) ShouldWarn() bool {
	return in.DailyTradesCount >= in.DailyTradesWarn
}

// Evaluate 事前风控。检查按固定顺序执行，命中第一条即返回，
// 保证诊断结果确定。纯函数，决策落库由调用方负责。
func Evaluate(in Input) Decision {
	if in.KillSwitch {
		return reject(RejectKillSwitch, "Kill switch enabled")
	}

	parsed, err := market.ParseSymbol(in.Symbol)
	if err != nil {
		return reject(RejectSymbolNotSupported, err.Error())
	}

	if !in.AllowOutOfSession && !market.IsOrderSession(in.Now) {
		return reject(RejectOutOfSession, "Out of order session")
	}

	if in.Quantity <= 0 {
		return reject(RejectInvalidQuantity, "quantity must be > 0")
	}
	if in.Direction == storage.DirectionBuy && in.Quantity%100 != 0 {
		return reject(RejectInvalidQuantity, "BUY quantity must be a multiple of 100 shares")
	}

	if in.Direction == storage.DirectionSell && in.Quantity > in.AvailableQuantity {
		return reject(RejectInsufficientSellable, "Insufficient sellable quantity (T+1)")
	}

	if in.DailyTradesCount >= in.DailyTradesReject {
		return reject(RejectDailyTradeLimit, fmt.Sprintf("Daily trades limit exceeded (%d)", in.DailyTradesCount))
	}

	// 行情有效性与时效性
	if in.Quote.QuoteTime.IsZero() {
		return reject(RejectQuoteInvalid, "Quote missing timestamp")
	}
	age := in.Now.Sub(in.Quote.QuoteTime)
	if age > in.QuoteMaxAge {
		return reject(RejectQuoteStale, fmt.Sprintf("Quote too old (%.1fs)", age.Seconds()))
	}

	if in.Quote.PrevClose <= 0 {
		return reject(RejectQuoteInvalid, "prev_close missing")
	}
	if in.Quote.Last <= 0 || in.Quote.Bid1 <= 0 || in.Quote.Ask1 <= 0 {
		return reject(RejectQuoteInvalid, "Quote prices missing")
	}

	// 买卖价差（一档缺失已回退为最新价，此时价差为0会通过）
	mid := (in.Quote.Ask1 + in.Quote.Bid1) / 2
	if mid > 0 {
		spreadRatio := (in.Quote.Ask1 - in.Quote.Bid1) / mid
		if spreadRatio > 0.01 {
			return reject(RejectSpreadTooWide, fmt.Sprintf("Spread too wide (%.2f%%)", spreadRatio*100))
		}
	}

	// 价格偏离与涨跌停。偏离门独立于涨跌停门且更严格（80%的板块限制）。
	limitRatio := parsed.LimitRatio()
	maxDeviation := limitRatio * 0.8
	upLimit := market.TickRound(in.Quote.PrevClose * (1 + limitRatio))
	downLimit := market.TickRound(in.Quote.PrevClose * (1 - limitRatio))

	deviation := math.Abs(in.Price/in.Quote.PrevClose - 1)
	if deviation > maxDeviation {
		return reject(RejectPriceDeviation, fmt.Sprintf("Price deviation too high (%.2f%%)", deviation*100))
	}

	if in.Direction == storage.DirectionBuy && (in.Quote.Last >= upLimit || in.Quote.Ask1 >= upLimit) {
		return reject(RejectLimitUpBuyBlocked, "Limit-up, buy blocked")
	}
	if in.Direction == storage.DirectionSell && (in.Quote.Last <= downLimit || in.Quote.Bid1 <= downLimit) {
		return reject(RejectLimitDownSellBlocked, "Limit-down, sell blocked")
	}

	orderValue := in.Price * float64(in.Quantity)
	if orderValue > in.OrderValueLimit {
		return reject(RejectOrderValueLimit, fmt.Sprintf("Order value limit exceeded (%.2f)", orderValue))
	}

	if in.Direction == storage.DirectionBuy {
		f := fees.Calc(orderValue, in.Direction, parsed.Market)
		if in.Cash < orderValue+f.Total() {
			return reject(RejectInsufficientCash, "Insufficient cash")
		}
	}

	return Decision{Approved: true}
}
