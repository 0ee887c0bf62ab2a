package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"papermesh/config"
	"papermesh/fees"
	"papermesh/logger"
	"papermesh/market"
	"papermesh/metrics"
	"papermesh/notify"
	"papermesh/quote"
	"papermesh/risk"
	"papermesh/storage"
	"papermesh/utils"
)

// QuoteProvider 行情提供方
type QuoteProvider interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]*quote.Quote, error)
}

// ErrInvalidRequest 下单请求参数非法（客户端错误，非系统故障）
var ErrInvalidRequest = errors.New("下单请求参数非法")

// Engine 模拟交易引擎。所有写路径持同一把锁串行执行，
// 保证账户、持仓、订单之间的一致性。
type Engine struct {
	mu     sync.Mutex
	store  *storage.Store
	quotes QuoteProvider
	cfg    *config.Config

	notifier *notify.Notifier

	// now 时钟源，测试可替换
	now func() time.Time
}

// NewEngine 创建引擎
func NewEngine(store *storage.Store, quotes QuoteProvider, cfg *config.Config, notifier *notify.Notifier) *Engine {
	return &Engine{store: store, quotes: quotes, cfg: cfg, notifier: notifier, now: utils.NowCN}
}

// today 按引擎时钟取当前东8区日期
func (e *Engine) today() string {
	return utils.ToCN(e.now()).Format("2006-01-02")
}

// UpdateConfig 热更新配置（风控阈值、超时等下一笔订单起生效）
func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if e.notifier != nil {
		e.notifier.UpdateConfig(cfg)
	}
}

// OrderRequest 下单请求
type OrderRequest struct {
	Symbol     string  `json:"symbol" binding:"required"`
	Direction  string  `json:"direction" binding:"required"`
	OrderType  string  `json:"order_type" binding:"required"`
	Quantity   int64   `json:"quantity" binding:"required"`
	LimitPrice float64 `json:"limit_price"`
	SignalID   string  `json:"signal_id"`
}

func newOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrder 下单。同步完成风控、落库和首次撮合尝试，
// 返回的订单状态为 REJECTED、FILLED 或 NEW。
func (e *Engine) CreateOrder(ctx context.Context, req *OrderRequest) (*storage.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	req.Direction = strings.ToUpper(req.Direction)
	req.OrderType = strings.ToUpper(req.OrderType)
	if req.Direction != storage.DirectionBuy && req.Direction != storage.DirectionSell {
		return nil, fmt.Errorf("%w: direction 无效: %s", ErrInvalidRequest, req.Direction)
	}
	if req.OrderType != storage.OrderTypeAggressive && req.OrderType != storage.OrderTypeLimit {
		return nil, fmt.Errorf("%w: order_type 无效: %s", ErrInvalidRequest, req.OrderType)
	}

	if req.OrderType == storage.OrderTypeLimit && req.LimitPrice <= 0 {
		return e.persistRejectedOrder(req, 0,
			risk.RejectQuoteInvalid, "limit_price required for LIMIT order")
	}

	quotes, err := e.quotes.FetchQuotes(ctx, []string{req.Symbol})
	if err != nil {
		metrics.QuoteFetchErrors.Inc()
		return nil, fmt.Errorf("获取行情失败: %w", err)
	}
	q, ok := quotes[req.Symbol]
	if !ok || q == nil || !q.Tradable {
		return e.persistRejectedOrder(req, 0,
			risk.RejectQuoteInvalid, "Quote not available (symbol may be suspended or invalid)")
	}

	// 一档缺失时回退为最新价
	snap := quoteSnapshot(q)

	// 对价单按对手方一档报价委托
	var price float64
	if req.OrderType == storage.OrderTypeAggressive {
		if req.Direction == storage.DirectionBuy {
			price = market.TickRound(snap.Ask1)
		} else {
			price = market.TickRound(snap.Bid1)
		}
	} else {
		price = market.TickRound(req.LimitPrice)
	}

	account, err := e.store.GetAccount()
	if err != nil {
		return nil, err
	}
	var available int64
	if pos, err := e.store.GetPosition(req.Symbol); err != nil {
		return nil, err
	} else if pos != nil {
		available = pos.AvailableQuantity
	}
	dailyTrades, err := e.store.CountFillsForDate(e.today())
	if err != nil {
		return nil, err
	}
	killSwitch, err := e.GetKillSwitch()
	if err != nil {
		return nil, err
	}

	input := risk.Input{
		Symbol:            req.Symbol,
		Direction:         req.Direction,
		Quantity:          req.Quantity,
		OrderType:         req.OrderType,
		Price:             price,
		Quote:             snap,
		Cash:              account.Cash,
		AvailableQuantity: available,
		KillSwitch:        killSwitch,
		OrderValueLimit:   e.cfg.Paper.OrderValueLimit,
		DailyTradesCount:  dailyTrades,
		DailyTradesWarn:   e.cfg.Paper.DailyTradesWarn,
		DailyTradesReject: e.cfg.Paper.DailyTradesReject,
		QuoteMaxAge:       time.Duration(e.cfg.Quote.MaxAgeSeconds) * time.Second,
		AllowOutOfSession: e.cfg.Paper.AllowOutOfSession,
		Now:               e.now(),
	}
	decision := risk.Evaluate(input)

	// 风控决策无论通过与否都留痕
	e.appendEvent(storage.EventRiskDecision, "", map[string]interface{}{
		"symbol":        req.Symbol,
		"direction":     req.Direction,
		"quantity":      req.Quantity,
		"price":         price,
		"approved":      decision.Approved,
		"reject_code":   string(decision.RejectCode),
		"reject_reason": decision.RejectReason,
	})

	if !decision.Approved {
		return e.persistRejectedOrder(req, price, decision.RejectCode, decision.RejectReason)
	}

	if input.ShouldWarn() {
		logger.Warn("⚠️ 当日成交笔数已达告警阈值: %d", dailyTrades)
		e.appendEvent(storage.EventRiskWarn, "", map[string]interface{}{
			"daily_trades": dailyTrades,
			"warn_level":   e.cfg.Paper.DailyTradesWarn,
		})
	}

	timeoutSeconds := e.cfg.Paper.LimitTimeoutSeconds
	if req.OrderType == storage.OrderTypeAggressive {
		timeoutSeconds = e.cfg.Paper.AggressiveTimeoutSeconds
	}
	now := e.now()
	order := &storage.Order{
		ClientOrderID:  newOrderID(),
		SignalID:       req.SignalID,
		Symbol:         req.Symbol,
		Direction:      req.Direction,
		OrderType:      req.OrderType,
		Quantity:       req.Quantity,
		Price:          price,
		TimeInForce:    "GFD",
		TimeoutSeconds: timeoutSeconds,
		Status:         storage.OrderStatusNew,
		ExpiresAt:      utils.FormatTime(now.Add(time.Duration(timeoutSeconds) * time.Second)),
	}
	order.BrokerOrderID = "PAPER-" + order.ClientOrderID

	if err := e.store.InsertOrder(order); err != nil {
		return nil, err
	}
	e.appendEvent(storage.EventOrder, order.ClientOrderID, map[string]interface{}{
		"status":    storage.OrderStatusNew,
		"symbol":    order.Symbol,
		"direction": order.Direction,
		"quantity":  order.Quantity,
		"price":     order.Price,
	})
	logger.Info("✅ 订单已接受: %s %s %s %d股 @ %.2f",
		order.ClientOrderID, order.Direction, order.Symbol, order.Quantity, order.Price)

	// 立即尝试撮合一次
	if err := e.tryMatchOrder(order, q); err != nil {
		return nil, err
	}
	return e.store.GetOrder(order.ClientOrderID)
}

// quoteSnapshot 构建风控快照，买卖一档缺失时回退为最新价
func quoteSnapshot(q *quote.Quote) risk.QuoteSnapshot {
	snap := risk.QuoteSnapshot{
		QuoteTime: q.QuoteTime,
		PrevClose: q.PrevClose,
		Last:      q.Last,
		Bid1:      q.Bid1,
		Ask1:      q.Ask1,
	}
	if snap.Bid1 <= 0 {
		snap.Bid1 = q.Last
	}
	if snap.Ask1 <= 0 {
		snap.Ask1 = q.Last
	}
	return snap
}

// persistRejectedOrder 落库拒单并留痕（调用方已持锁）
func (e *Engine) persistRejectedOrder(req *OrderRequest, price float64, code risk.RejectCode, reason string) (*storage.Order, error) {
	order := &storage.Order{
		ClientOrderID:  newOrderID(),
		SignalID:       req.SignalID,
		Symbol:         req.Symbol,
		Direction:      req.Direction,
		OrderType:      req.OrderType,
		Quantity:       req.Quantity,
		Price:          price,
		TimeInForce:    "GFD",
		TimeoutSeconds: 0,
		Status:         storage.OrderStatusRejected,
		RejectCode:     string(code),
		RejectReason:   reason,
	}
	if err := e.store.InsertOrder(order); err != nil {
		return nil, err
	}
	e.appendEvent(storage.EventOrder, order.ClientOrderID, map[string]interface{}{
		"status":        storage.OrderStatusRejected,
		"symbol":        order.Symbol,
		"direction":     order.Direction,
		"reject_code":   string(code),
		"reject_reason": reason,
	})

	metrics.OrdersTotal.WithLabelValues(order.Direction, storage.OrderStatusRejected).Inc()
	metrics.RejectsTotal.WithLabelValues(string(code)).Inc()
	logger.Warn("🚫 拒单: %s %s [%s] %s", order.Direction, order.Symbol, code, reason)
	e.notifier.OrderRejected(fmt.Sprintf("%s %s %d股 [%s] %s",
		order.Direction, order.Symbol, order.Quantity, code, reason))
	return order, nil
}

// tryMatchOrder 尝试撮合单笔挂单（调用方已持锁）。
// 买单在委托价 >= 卖一时按卖一价全量成交，卖单对称。
func (e *Engine) tryMatchOrder(order *storage.Order, q *quote.Quote) error {
	if order.Status != storage.OrderStatusNew {
		return nil
	}
	if q == nil || !q.Tradable {
		return nil
	}

	snap := quoteSnapshot(q)
	var fillPrice float64
	switch order.Direction {
	case storage.DirectionBuy:
		if snap.Ask1 <= 0 || order.Price < snap.Ask1 {
			return nil
		}
		fillPrice = snap.Ask1
	case storage.DirectionSell:
		if snap.Bid1 <= 0 || order.Price > snap.Bid1 {
			return nil
		}
		fillPrice = snap.Bid1
	default:
		return nil
	}
	fillPrice = market.TickRound(fillPrice)

	parsed, err := market.ParseSymbol(order.Symbol)
	if err != nil {
		return err
	}

	tradeValue := fillPrice * float64(order.Quantity)
	f := fees.Calc(tradeValue, order.Direction, parsed.Market)

	now := e.now()
	fill := &storage.Fill{
		FillID:        newOrderID(),
		ClientOrderID: order.ClientOrderID,
		BrokerOrderID: order.BrokerOrderID,
		Symbol:        order.Symbol,
		Direction:     order.Direction,
		Quantity:      order.Quantity,
		Price:         fillPrice,
		Commission:    f.Commission,
		StampTax:      f.StampTax,
		TransferFee:   f.TransferFee,
		TradeTime:     utils.FormatTime(now),
	}
	fill.BrokerTradeID = "PAPERFILL-" + fill.FillID
	if err := e.store.InsertFill(fill); err != nil {
		return err
	}

	if err := e.applyFill(order, fill, tradeValue, f); err != nil {
		return err
	}

	if err := e.store.MarkOrderFilled(order.ClientOrderID, order.Quantity); err != nil {
		return err
	}
	order.Status = storage.OrderStatusFilled
	order.CumFilledQty = order.Quantity

	e.appendEvent(storage.EventTrade, order.ClientOrderID, map[string]interface{}{
		"fill_id":   fill.FillID,
		"symbol":    fill.Symbol,
		"direction": fill.Direction,
		"quantity":  fill.Quantity,
		"price":     fill.Price,
		"fees":      f.Total(),
	})
	e.appendEvent(storage.EventOrder, order.ClientOrderID, map[string]interface{}{
		"status": storage.OrderStatusFilled,
	})

	metrics.OrdersTotal.WithLabelValues(order.Direction, storage.OrderStatusFilled).Inc()
	metrics.FillsTotal.WithLabelValues(order.Direction).Inc()
	metrics.FeesTotal.Add(f.Total())
	logger.Info("📈 成交: %s %s %d股 @ %.2f 费用 %.2f",
		order.Direction, order.Symbol, order.Quantity, fillPrice, f.Total())
	e.notifier.OrderFilled(fmt.Sprintf("%s %s %d股 @ %.2f",
		order.Direction, order.Symbol, order.Quantity, fillPrice))
	return nil
}

// applyFill 将成交记账到账户与持仓（调用方已持锁）
func (e *Engine) applyFill(order *storage.Order, fill *storage.Fill, tradeValue float64, f fees.Fees) error {
	account, err := e.store.GetAccount()
	if err != nil {
		return err
	}
	pos, err := e.store.GetPosition(order.Symbol)
	if err != nil {
		return err
	}

	var cash float64
	switch order.Direction {
	case storage.DirectionBuy:
		cash = account.Cash - tradeValue - f.Total()

		var oldTotal, oldAvail int64
		var oldAvg float64
		if pos != nil {
			oldTotal, oldAvail, oldAvg = pos.TotalQuantity, pos.AvailableQuantity, pos.AvgCost
		}
		newTotal := oldTotal + fill.Quantity
		// 当日买入不可卖（T+1），可卖数量不变
		newAvg := (float64(oldTotal)*oldAvg + float64(fill.Quantity)*fill.Price) / float64(newTotal)
		if err := e.store.UpsertPosition(order.Symbol, newTotal, oldAvail, newAvg); err != nil {
			return err
		}

	case storage.DirectionSell:
		cash = account.Cash + tradeValue - f.Total()

		newTotal := pos.TotalQuantity - fill.Quantity
		newAvail := pos.AvailableQuantity - fill.Quantity
		if newAvail < 0 {
			newAvail = 0
		}
		newAvg := pos.AvgCost
		if newTotal <= 0 {
			newTotal, newAvail, newAvg = 0, 0, 0
		}
		if err := e.store.UpsertPosition(order.Symbol, newTotal, newAvail, newAvg); err != nil {
			return err
		}
	}

	// 估算总资产：成交代码按成交价，其余按成本价
	totalValue := cash
	positions, err := e.store.ListPositions()
	if err != nil {
		return err
	}
	for _, p := range positions {
		px := p.AvgCost
		if p.Symbol == order.Symbol {
			px = fill.Price
		}
		totalValue += float64(p.TotalQuantity) * px
	}

	if err := e.store.UpdateAccount(cash, totalValue); err != nil {
		return err
	}
	metrics.AccountCash.Set(cash)
	metrics.AccountTotalValue.Set(totalValue)
	return nil
}

// CancelOrder 撤单。仅 NEW / CANCEL_PENDING 可撤；
// 终态订单幂等返回当前状态，不报错。
func (e *Engine) CancelOrder(clientOrderID, reason string) (*storage.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelLocked(clientOrderID, reason)
}

func (e *Engine) cancelLocked(clientOrderID, reason string) (*storage.Order, error) {
	order, err := e.store.GetOrder(clientOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("订单不存在: %s", clientOrderID)
	}

	if order.Status != storage.OrderStatusNew && order.Status != storage.OrderStatusCancelPending {
		return order, nil
	}

	if err := e.store.UpdateOrderStatus(clientOrderID, storage.OrderStatusCanceled); err != nil {
		return nil, err
	}
	if err := e.store.SetOrderExpiresAt(clientOrderID, ""); err != nil {
		return nil, err
	}
	order.Status = storage.OrderStatusCanceled
	order.ExpiresAt = ""

	if reason == "" {
		reason = "Canceled by user"
	}
	e.appendEvent(storage.EventOrder, clientOrderID, map[string]interface{}{
		"status": storage.OrderStatusCanceled,
		"reason": reason,
	})
	metrics.OrdersTotal.WithLabelValues(order.Direction, storage.OrderStatusCanceled).Inc()
	logger.Info("↩️ 撤单: %s (%s)", clientOrderID, reason)
	return order, nil
}

// GetKillSwitch 查询熔断开关状态
func (e *Engine) GetKillSwitch() (bool, error) {
	v, err := e.store.GetState(storage.StateKillSwitch)
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

// SetKillSwitch 设置熔断开关。开启时先撤掉全部挂单再落开关标志，
// 进程在两步之间崩溃时重启后开关仍为关，不会留下只撤了一半的状态。
func (e *Engine) SetKillSwitch(enabled bool, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enabled {
		open, err := e.store.ListOpenOrders()
		if err != nil {
			return err
		}
		for _, o := range open {
			if _, err := e.cancelLocked(o.ClientOrderID, "Kill switch"); err != nil {
				return err
			}
		}
	}

	value := "0"
	if enabled {
		value = "1"
	}
	if err := e.store.SetState(storage.StateKillSwitch, value); err != nil {
		return err
	}
	if err := e.store.SetState(storage.StateKillSwitchUpdatedAt, utils.FormatTime(e.now())); err != nil {
		return err
	}

	e.appendEvent(storage.EventKillSwitch, "", map[string]interface{}{
		"enabled": enabled,
		"reason":  reason,
	})
	if enabled {
		metrics.KillSwitchState.Set(1)
		logger.Warn("🛑 熔断开关已开启: %s", reason)
	} else {
		metrics.KillSwitchState.Set(0)
		logger.Info("✅ 熔断开关已关闭: %s", reason)
	}
	e.notifier.KillSwitch(fmt.Sprintf("enabled=%v reason=%s", enabled, reason))
	return nil
}

// RefreshAccountValue 按最新行情重估总资产并落库
func (e *Engine) RefreshAccountValue(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshAccountValueLocked(ctx)
}

func (e *Engine) refreshAccountValueLocked(ctx context.Context) (float64, error) {
	totalValue, _, err := e.revalueLocked(ctx)
	return totalValue, err
}

// revalueLocked 按最新行情重估并落库。返回总资产与持仓浮动盈亏
// （逐仓 数量×(现价-成本) 求和，行情缺失的持仓按成本价计，浮盈为0）。
func (e *Engine) revalueLocked(ctx context.Context) (float64, float64, error) {
	account, err := e.store.GetAccount()
	if err != nil {
		return 0, 0, err
	}
	positions, err := e.store.ListPositions()
	if err != nil {
		return 0, 0, err
	}

	totalValue := account.Cash
	var unrealized float64
	if len(positions) > 0 {
		symbols := make([]string, 0, len(positions))
		for _, p := range positions {
			symbols = append(symbols, p.Symbol)
		}
		quotes, err := e.quotes.FetchQuotes(ctx, symbols)
		if err != nil {
			metrics.QuoteFetchErrors.Inc()
			quotes = map[string]*quote.Quote{}
		}
		for _, p := range positions {
			px := p.AvgCost
			if q, ok := quotes[p.Symbol]; ok && q.Last > 0 {
				px = q.Last
			}
			totalValue += float64(p.TotalQuantity) * px
			unrealized += float64(p.TotalQuantity) * (px - p.AvgCost)
		}
	}

	if err := e.store.UpdateAccount(account.Cash, totalValue); err != nil {
		return 0, 0, err
	}
	metrics.AccountCash.Set(account.Cash)
	metrics.AccountTotalValue.Set(totalValue)
	return totalValue, unrealized, nil
}

// appendEvent 追加事件，失败只记日志不中断交易路径
func (e *Engine) appendEvent(eventType, relatedID string, payload map[string]interface{}) {
	if _, err := e.store.AppendEvent(eventType, relatedID, payload); err != nil {
		logger.Error("❌ 写入事件失败 [%s]: %v", eventType, err)
	}
}
