package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"papermesh/logger"
	"papermesh/metrics"
	"papermesh/storage"
	"papermesh/utils"
)

// Start 启动后台处理循环，ctx 取消后退出。
// 每个周期依次执行：过期撤单、重撮合、T+1 解冻、日初快照、日终盈亏。
func (e *Engine) Start(ctx context.Context) {
	interval := time.Duration(e.cfg.Paper.PollSeconds * float64(time.Second))
	if interval <= 0 {
		interval = 2 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("✅ 引擎后台循环已启动 (间隔 %v)", interval)
		for {
			select {
			case <-ctx.Done():
				logger.Info("引擎后台循环已退出")
				return
			case <-ticker.C:
				e.tick(ctx)
			}
		}
	}()
}

// tick 单次后台处理。任一步骤出错记录 ENGINE_ERROR 事件后继续，
// 不让单次故障中断循环。
func (e *Engine) tick(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"expire_orders", e.expireOrders},
		{"rematch_orders", e.rematchOrders},
		{"daily_unfreeze", e.dailyUnfreeze},
		{"day_start_snapshot", e.dayStartSnapshot},
		{"daily_pnl", e.dailyPnl},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			metrics.TickErrors.Inc()
			logger.Error("❌ 后台处理出错 [%s]: %v", step.name, err)
			e.appendEvent(storage.EventEngineError, "", map[string]interface{}{
				"step":  step.name,
				"error": err.Error(),
			})
			e.notifier.EngineError(fmt.Sprintf("[%s] %v", step.name, err))
		}
	}
}

// expireOrders 撤掉已过期的挂单
func (e *Engine) expireOrders(ctx context.Context) error {
	expired, err := e.store.ListExpiredOpenOrders(utils.FormatTime(e.now()))
	if err != nil {
		return err
	}
	for _, o := range expired {
		if _, err := e.cancelLocked(o.ClientOrderID, "Timeout"); err != nil {
			return err
		}
	}
	return nil
}

// rematchOrders 对全部挂单重试撮合，行情按批合并获取一次
func (e *Engine) rematchOrders(ctx context.Context) error {
	open, err := e.store.ListOpenOrders()
	if err != nil {
		return err
	}
	if len(open) == 0 {
		metrics.OpenOrders.Set(0)
		return nil
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, o := range open {
		if !seen[o.Symbol] {
			seen[o.Symbol] = true
			symbols = append(symbols, o.Symbol)
		}
	}
	quotes, err := e.quotes.FetchQuotes(ctx, symbols)
	if err != nil {
		metrics.QuoteFetchErrors.Inc()
		return err
	}

	remaining := 0
	for _, o := range open {
		if err := e.tryMatchOrder(o, quotes[o.Symbol]); err != nil {
			return err
		}
		if o.Status == storage.OrderStatusNew {
			remaining++
		}
	}
	metrics.OpenOrders.Set(float64(remaining))
	return nil
}

// afterTimeOfDay 判断是否已过当日某时刻
func afterTimeOfDay(t time.Time, hour, min int) bool {
	return t.Hour()*60+t.Minute() >= hour*60+min
}

// dailyUnfreeze T+1 解冻：交易日 09:25 后将全部持仓的可卖数量
// 提升到总数量，每日执行一次。
func (e *Engine) dailyUnfreeze(ctx context.Context) error {
	now := e.now()
	if !utils.IsWeekday(now) || !afterTimeOfDay(utils.ToCN(now), 9, 25) {
		return nil
	}
	today := e.today()
	last, err := e.store.GetState(storage.StateLastUnfreezeDate)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	positions, err := e.store.ListPositions()
	if err != nil {
		return err
	}
	unfrozen := 0
	for _, p := range positions {
		if p.AvailableQuantity < p.TotalQuantity {
			if err := e.store.UpsertPosition(p.Symbol, p.TotalQuantity, p.TotalQuantity, p.AvgCost); err != nil {
				return err
			}
			unfrozen++
		}
	}
	if err := e.store.SetState(storage.StateLastUnfreezeDate, today); err != nil {
		return err
	}

	e.appendEvent(storage.EventTPlus1Unfreeze, "", map[string]interface{}{
		"date":      today,
		"positions": unfrozen,
	})
	logger.Info("✅ T+1 解冻完成: %s (%d 个持仓)", today, unfrozen)
	metrics.PositionCount.Set(float64(len(positions)))
	return nil
}

// dayStartSnapshot 交易日 09:30 后记录日初总资产，每日执行一次
func (e *Engine) dayStartSnapshot(ctx context.Context) error {
	now := e.now()
	if !utils.IsWeekday(now) || !afterTimeOfDay(utils.ToCN(now), 9, 30) {
		return nil
	}
	today := e.today()
	last, err := e.store.GetState(storage.StateDayStartDate)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	totalValue, err := e.refreshAccountValueLocked(ctx)
	if err != nil {
		return err
	}
	if err := e.store.SetState(storage.StateDayStartDate, today); err != nil {
		return err
	}
	if err := e.store.SetState(storage.StateDayStartValue, strconv.FormatFloat(totalValue, 'f', -1, 64)); err != nil {
		return err
	}

	e.appendEvent(storage.EventDayStart, "", map[string]interface{}{
		"date":        today,
		"start_value": totalValue,
	})
	logger.Info("✅ 日初快照: %s 总资产 %.2f", today, totalValue)
	return nil
}

// dailyPnl 交易日 15:05 后结算当日盈亏，每日执行一次
func (e *Engine) dailyPnl(ctx context.Context) error {
	now := e.now()
	if !utils.IsWeekday(now) || !afterTimeOfDay(utils.ToCN(now), 15, 5) {
		return nil
	}
	today := e.today()
	last, err := e.store.GetState(storage.StateLastDailyPnlDate)
	if err != nil {
		return err
	}
	if last == today {
		return nil
	}

	// 浮动盈亏按持仓逐仓计算（数量×(现价-成本)），与当日总资产变动无关：
	// 老仓的存量浮盈也要计入，费用和已实现部分则体现在总资产里
	endValue, unrealized, err := e.revalueLocked(ctx)
	if err != nil {
		return err
	}

	startValue := endValue
	if sd, err := e.store.GetState(storage.StateDayStartDate); err == nil && sd == today {
		if sv, err := e.store.GetState(storage.StateDayStartValue); err == nil && sv != "" {
			if v, err := strconv.ParseFloat(sv, 64); err == nil {
				startValue = v
			}
		}
	}

	trades, err := e.store.CountFillsForDate(today)
	if err != nil {
		return err
	}
	commission, err := e.store.SumFeesForDate(today)
	if err != nil {
		return err
	}

	pnl := &storage.DailyPnl{
		Date:          today,
		StartValue:    startValue,
		EndValue:      endValue,
		RealizedPnl:   0,
		UnrealizedPnl: unrealized,
		Commission:    commission,
		Trades:        trades,
	}
	if err := e.store.UpsertDailyPnl(pnl); err != nil {
		return err
	}
	if err := e.store.SetState(storage.StateLastDailyPnlDate, today); err != nil {
		return err
	}

	e.appendEvent(storage.EventDailyPnl, "", map[string]interface{}{
		"date":           today,
		"start_value":    startValue,
		"end_value":      endValue,
		"pnl":            endValue - startValue,
		"unrealized_pnl": unrealized,
		"trades":         trades,
		"commission":     commission,
	})
	logger.Info("✅ 日终盈亏: %s %.2f -> %.2f (成交 %d 笔, 费用 %.2f)",
		today, startValue, endValue, trades, commission)
	return nil
}
