package engine

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"papermesh/config"
	"papermesh/notify"
	"papermesh/quote"
	"papermesh/risk"
	"papermesh/storage"
	"papermesh/utils"
)

// fakeQuotes 固定行情源
type fakeQuotes struct {
	quotes map[string]*quote.Quote
}

func (f *fakeQuotes) FetchQuotes(ctx context.Context, symbols []string) (map[string]*quote.Quote, error) {
	result := make(map[string]*quote.Quote)
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			result[s] = q
		}
	}
	return result, nil
}

func (f *fakeQuotes) set(symbol string, prevClose, last, bid, ask float64) {
	f.quotes[symbol] = &quote.Quote{
		Symbol:    symbol,
		Last:      last,
		PrevClose: prevClose,
		Bid1:      bid,
		Ask1:      ask,
		QuoteTime: utils.NowCN(),
		Source:    "fake",
		Tradable:  true,
	}
}

const testConfigYaml = `
paper:
  allow_out_of_session: true
  initial_cash: 4000000
  daily_trades_warn: 10
  daily_trades_reject: 15
`

func newTestEngine(t *testing.T, yaml string) (*Engine, *storage.Store, *fakeQuotes) {
	t.Helper()

	cfg, err := config.LoadConfigFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("加载测试配置失败: %v", err)
	}

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "engine_test.db"))
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.SetInitialCashIfEmpty(cfg.Paper.InitialCash); err != nil {
		t.Fatalf("注入初始资金失败: %v", err)
	}

	quotes := &fakeQuotes{quotes: make(map[string]*quote.Quote)}
	eng := NewEngine(store, quotes, cfg, notify.NewNotifier(cfg))
	return eng, store, quotes
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestCreateOrderAggressiveBuyFills(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	order, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol:    "000001.SZ",
		Direction: "BUY",
		OrderType: "AGGRESSIVE",
		Quantity:  100,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if order.Status != storage.OrderStatusFilled {
		t.Fatalf("对价单应立即成交, 实际状态 %s [%s] %s",
			order.Status, order.RejectCode, order.RejectReason)
	}
	if order.Price != 10.00 || order.CumFilledQty != 100 {
		t.Fatalf("成交数据不符: %+v", order)
	}
	if order.BrokerOrderID != "PAPER-"+order.ClientOrderID {
		t.Fatalf("broker_order_id 不符: %s", order.BrokerOrderID)
	}

	// 账户: 4000000 - 1000(本金) - 5(最低佣金)
	account, _ := store.GetAccount()
	if !almostEqual(account.Cash, 3998995) {
		t.Fatalf("买入后现金应为 3998995, 实际 %f", account.Cash)
	}

	// 持仓: 当日买入不可卖
	pos, _ := store.GetPosition("000001.SZ")
	if pos == nil || pos.TotalQuantity != 100 || pos.AvailableQuantity != 0 {
		t.Fatalf("持仓不符: %+v", pos)
	}
	if !almostEqual(pos.AvgCost, 10.00) {
		t.Fatalf("成本价应为 10.00, 实际 %f", pos.AvgCost)
	}

	fills, _ := store.ListFills("", 0)
	if len(fills) != 1 {
		t.Fatalf("成交记录应为1条, 实际 %d", len(fills))
	}
	if fills[0].BrokerTradeID != "PAPERFILL-"+fills[0].FillID {
		t.Fatalf("broker_trade_id 不符: %s", fills[0].BrokerTradeID)
	}
	if !almostEqual(fills[0].Commission, 5.0) || fills[0].StampTax != 0 {
		t.Fatalf("买入费用不符: %+v", fills[0])
	}
}

func TestCreateOrderLimitRestsThenCancel(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	order, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol:     "000001.SZ",
		Direction:  "BUY",
		OrderType:  "LIMIT",
		Quantity:   100,
		LimitPrice: 9.90,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if order.Status != storage.OrderStatusNew {
		t.Fatalf("未触及卖一的限价单应挂单, 实际 %s [%s]", order.Status, order.RejectCode)
	}
	if order.ExpiresAt == "" {
		t.Fatal("挂单应设置过期时间")
	}

	canceled, err := eng.CancelOrder(order.ClientOrderID, "")
	if err != nil {
		t.Fatalf("撤单失败: %v", err)
	}
	if canceled.Status != storage.OrderStatusCanceled {
		t.Fatalf("撤单后状态应为 CANCELED, 实际 %s", canceled.Status)
	}

	got, _ := store.GetOrder(order.ClientOrderID)
	if got.ExpiresAt != "" {
		t.Fatal("撤单后应清除过期时间")
	}

	// 终态订单重复撤单幂等，不报错
	again, err := eng.CancelOrder(order.ClientOrderID, "")
	if err != nil {
		t.Fatalf("重复撤单不应报错: %v", err)
	}
	if again.Status != storage.OrderStatusCanceled {
		t.Fatalf("重复撤单应返回当前状态, 实际 %s", again.Status)
	}
}

func TestCreateOrderLimitWithoutPrice(t *testing.T) {
	eng, _, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	order, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol:    "000001.SZ",
		Direction: "BUY",
		OrderType: "LIMIT",
		Quantity:  100,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if order.Status != storage.OrderStatusRejected {
		t.Fatalf("缺少限价应被拒, 实际 %s", order.Status)
	}
	if order.RejectCode != string(risk.RejectQuoteInvalid) {
		t.Fatalf("拒单代码应为 QUOTE_INVALID, 实际 %s", order.RejectCode)
	}
}

func TestCreateOrderQuoteNotAvailable(t *testing.T) {
	eng, _, _ := newTestEngine(t, testConfigYaml)

	order, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol:    "000002.SZ",
		Direction: "BUY",
		OrderType: "AGGRESSIVE",
		Quantity:  100,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if order.Status != storage.OrderStatusRejected {
		t.Fatalf("无行情应被拒, 实际 %s", order.Status)
	}
	if order.RejectCode != string(risk.RejectQuoteInvalid) {
		t.Fatalf("拒单代码应为 QUOTE_INVALID, 实际 %s", order.RejectCode)
	}
}

func TestTPlus1BlocksSameDaySell(t *testing.T) {
	eng, _, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	buy, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if buy.Status != storage.OrderStatusFilled {
		t.Fatalf("买入应成交, 实际 %s", buy.Status)
	}

	sell, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "SELL", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if sell.Status != storage.OrderStatusRejected ||
		sell.RejectCode != string(risk.RejectInsufficientSellable) {
		t.Fatalf("当日买入当日卖出应被拒 [INSUFFICIENT_SELLABLE], 实际 %s [%s]",
			sell.Status, sell.RejectCode)
	}
}

func TestSellReducesPositionAndAddsCash(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("600000.SH", 10.00, 10.00, 10.00, 10.01)

	// 预置昨仓：200股可卖
	if err := store.UpsertPosition("600000.SH", 200, 200, 10.00); err != nil {
		t.Fatalf("预置持仓失败: %v", err)
	}

	sell, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "600000.SH", Direction: "SELL", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if sell.Status != storage.OrderStatusFilled {
		t.Fatalf("卖出应成交, 实际 %s [%s] %s", sell.Status, sell.RejectCode, sell.RejectReason)
	}

	// 现金: 4000000 + 1000 - 5(佣金) - 1(印花税) - 0.02(过户费)
	account, _ := store.GetAccount()
	if !almostEqual(account.Cash, 4000993.98) {
		t.Fatalf("卖出后现金应为 4000993.98, 实际 %f", account.Cash)
	}

	pos, _ := store.GetPosition("600000.SH")
	if pos.TotalQuantity != 100 || pos.AvailableQuantity != 100 {
		t.Fatalf("卖出后持仓不符: %+v", pos)
	}
	if !almostEqual(pos.AvgCost, 10.00) {
		t.Fatalf("部分卖出不应改变成本价, 实际 %f", pos.AvgCost)
	}

	// 清仓后成本归零
	sell2, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "600000.SH", Direction: "SELL", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if sell2.Status != storage.OrderStatusFilled {
		t.Fatalf("清仓卖出应成交, 实际 %s [%s]", sell2.Status, sell2.RejectCode)
	}
	pos, _ = store.GetPosition("600000.SH")
	if pos.TotalQuantity != 0 || pos.AvailableQuantity != 0 || pos.AvgCost != 0 {
		t.Fatalf("清仓后持仓应全部归零: %+v", pos)
	}
}

func TestAvgCostWeighting(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)

	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)
	first, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if first.Status != storage.OrderStatusFilled {
		t.Fatalf("首次买入应成交, 实际 %s", first.Status)
	}

	// 行情抬升后加仓
	quotes.set("000001.SZ", 11.50, 12.00, 11.99, 12.00)
	second, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if second.Status != storage.OrderStatusFilled {
		t.Fatalf("加仓应成交, 实际 %s [%s] %s", second.Status, second.RejectCode, second.RejectReason)
	}

	// (100*10 + 100*12) / 200 = 11.00
	pos, _ := store.GetPosition("000001.SZ")
	if pos.TotalQuantity != 200 {
		t.Fatalf("加仓后总量应为200, 实际 %d", pos.TotalQuantity)
	}
	if !almostEqual(pos.AvgCost, 11.00) {
		t.Fatalf("加权成本应为 11.00, 实际 %f", pos.AvgCost)
	}
}

func TestKillSwitchCancelsAndBlocks(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	resting, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "LIMIT", Quantity: 100, LimitPrice: 9.90,
	})
	if resting.Status != storage.OrderStatusNew {
		t.Fatalf("限价单应挂单, 实际 %s", resting.Status)
	}

	if err := eng.SetKillSwitch(true, "manual"); err != nil {
		t.Fatalf("开启熔断失败: %v", err)
	}

	// 开启时先撤全部挂单
	got, _ := store.GetOrder(resting.ClientOrderID)
	if got.Status != storage.OrderStatusCanceled {
		t.Fatalf("熔断应撤掉挂单, 实际 %s", got.Status)
	}

	blocked, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if blocked.Status != storage.OrderStatusRejected ||
		blocked.RejectCode != string(risk.RejectKillSwitch) {
		t.Fatalf("熔断期间下单应被拒 [KILL_SWITCH], 实际 %s [%s]", blocked.Status, blocked.RejectCode)
	}

	// 关闭后恢复
	if err := eng.SetKillSwitch(false, "resume"); err != nil {
		t.Fatalf("关闭熔断失败: %v", err)
	}
	ok, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if ok.Status != storage.OrderStatusFilled {
		t.Fatalf("熔断关闭后应恢复交易, 实际 %s [%s]", ok.Status, ok.RejectCode)
	}
}

func TestDailyTradeThresholds(t *testing.T) {
	yaml := `
paper:
  allow_out_of_session: true
  initial_cash: 4000000
  daily_trades_warn: 2
  daily_trades_reject: 3
`
	eng, store, quotes := newTestEngine(t, yaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	// 前3笔成交（第3笔下单时已有2笔，达到告警阈值但未达拒单阈值）
	for i := 0; i < 3; i++ {
		order, err := eng.CreateOrder(context.Background(), &OrderRequest{
			Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
		})
		if err != nil {
			t.Fatalf("第%d笔下单失败: %v", i+1, err)
		}
		if order.Status != storage.OrderStatusFilled {
			t.Fatalf("第%d笔应成交, 实际 %s [%s]", i+1, order.Status, order.RejectCode)
		}
	}

	// 第4笔：已有3笔成交 >= 拒单阈值
	order, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if order.Status != storage.OrderStatusRejected ||
		order.RejectCode != string(risk.RejectDailyTradeLimit) {
		t.Fatalf("超过当日笔数应被拒 [DAILY_TRADE_LIMIT], 实际 %s [%s]",
			order.Status, order.RejectCode)
	}

	// 告警事件应已记录
	events, _ := store.ListEvents(0, 0)
	var warns, decisions int
	for _, e := range events {
		switch e.EventType {
		case storage.EventRiskWarn:
			warns++
		case storage.EventRiskDecision:
			decisions++
		}
	}
	if warns == 0 {
		t.Fatal("达到告警阈值后应记录 RISK_WARN 事件")
	}
	// 每次下单都有风控决策留痕（含被拒的第4笔）
	if decisions != 4 {
		t.Fatalf("风控决策事件应为4条, 实际 %d", decisions)
	}
}

func TestExpireAndRematch(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)
	ctx := context.Background()

	resting, _ := eng.CreateOrder(ctx, &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "LIMIT", Quantity: 100, LimitPrice: 9.90,
	})
	if resting.Status != storage.OrderStatusNew {
		t.Fatalf("限价单应挂单, 实际 %s", resting.Status)
	}

	// 行情未触及时重撮合不改变状态
	if err := eng.rematchOrders(ctx); err != nil {
		t.Fatalf("重撮合失败: %v", err)
	}
	got, _ := store.GetOrder(resting.ClientOrderID)
	if got.Status != storage.OrderStatusNew {
		t.Fatalf("行情未触及不应成交, 实际 %s", got.Status)
	}

	// 卖一下移后重撮合应成交
	quotes.set("000001.SZ", 10.00, 9.90, 9.89, 9.90)
	if err := eng.rematchOrders(ctx); err != nil {
		t.Fatalf("重撮合失败: %v", err)
	}
	got, _ = store.GetOrder(resting.ClientOrderID)
	if got.Status != storage.OrderStatusFilled {
		t.Fatalf("行情触及后应成交, 实际 %s", got.Status)
	}
	fills, _ := store.ListFills("", 0)
	if len(fills) != 1 || fills[0].Price != 9.90 {
		t.Fatalf("应按卖一价 9.90 成交: %+v", fills)
	}

	// 过期撤单
	resting2, _ := eng.CreateOrder(ctx, &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "LIMIT", Quantity: 100, LimitPrice: 9.50,
	})
	if resting2.Status != storage.OrderStatusNew {
		t.Fatalf("限价单应挂单, 实际 %s [%s] %s", resting2.Status, resting2.RejectCode, resting2.RejectReason)
	}
	if err := store.SetOrderExpiresAt(resting2.ClientOrderID, "2020-01-01T00:00:00+08:00"); err != nil {
		t.Fatalf("设置过期时间失败: %v", err)
	}
	if err := eng.expireOrders(ctx); err != nil {
		t.Fatalf("过期处理失败: %v", err)
	}
	got, _ = store.GetOrder(resting2.ClientOrderID)
	if got.Status != storage.OrderStatusCanceled {
		t.Fatalf("过期挂单应撤销, 实际 %s", got.Status)
	}
}

// setClock 固定引擎时钟（东8区）
func setClock(eng *Engine, year int, month time.Month, day, hour, min int) {
	fixed := time.Date(year, month, day, hour, min, 0, 0, utils.CNLocation)
	eng.now = func() time.Time { return fixed }
}

func TestCreateOrderInvalidRequest(t *testing.T) {
	eng, _, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	_, err := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "HOLD", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("非法方向应返回 ErrInvalidRequest, 实际 %v", err)
	}

	_, err = eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "MARKET", Quantity: 100,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("非法订单类型应返回 ErrInvalidRequest, 实际 %v", err)
	}
}

func TestDailyUnfreeze(t *testing.T) {
	eng, store, _ := newTestEngine(t, testConfigYaml)
	ctx := context.Background()

	// 昨日买入的冻结仓位
	store.UpsertPosition("000001.SZ", 200, 100, 10.00)

	// 周六不解冻
	setClock(eng, 2026, 8, 29, 9, 30)
	if err := eng.dailyUnfreeze(ctx); err != nil {
		t.Fatalf("解冻失败: %v", err)
	}
	pos, _ := store.GetPosition("000001.SZ")
	if pos.AvailableQuantity != 100 {
		t.Fatalf("周六不应解冻, 实际可卖 %d", pos.AvailableQuantity)
	}

	// 工作日 09:25 前不解冻
	setClock(eng, 2026, 8, 28, 9, 20)
	eng.dailyUnfreeze(ctx)
	pos, _ = store.GetPosition("000001.SZ")
	if pos.AvailableQuantity != 100 {
		t.Fatalf("09:25 前不应解冻, 实际可卖 %d", pos.AvailableQuantity)
	}

	// 工作日 09:25 后解冻：可卖提升到总量
	setClock(eng, 2026, 8, 28, 9, 26)
	if err := eng.dailyUnfreeze(ctx); err != nil {
		t.Fatalf("解冻失败: %v", err)
	}
	pos, _ = store.GetPosition("000001.SZ")
	if pos.AvailableQuantity != 200 {
		t.Fatalf("解冻后可卖应为200, 实际 %d", pos.AvailableQuantity)
	}

	// 当日只执行一次（标记生效后重新冻结的仓位不受影响）
	store.UpsertPosition("000001.SZ", 200, 0, 10.00)
	eng.dailyUnfreeze(ctx)
	pos, _ = store.GetPosition("000001.SZ")
	if pos.AvailableQuantity != 0 {
		t.Fatalf("当日重复执行不应再次解冻, 实际可卖 %d", pos.AvailableQuantity)
	}
}

func TestDayStartSnapshotIdempotent(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	ctx := context.Background()

	store.UpsertPosition("000001.SZ", 100, 100, 10.00)
	quotes.set("000001.SZ", 10.00, 12.00, 11.99, 12.00)

	// 09:30 前不打快照
	setClock(eng, 2026, 8, 28, 9, 29)
	eng.dayStartSnapshot(ctx)
	if d, _ := store.GetState(storage.StateDayStartDate); d != "" {
		t.Fatalf("09:30 前不应打快照, 实际 %q", d)
	}

	setClock(eng, 2026, 8, 28, 9, 31)
	if err := eng.dayStartSnapshot(ctx); err != nil {
		t.Fatalf("日初快照失败: %v", err)
	}
	if d, _ := store.GetState(storage.StateDayStartDate); d != "2026-08-28" {
		t.Fatalf("快照日期应为 2026-08-28, 实际 %q", d)
	}
	// 4000000(现金) + 100 * 12.00
	if v, _ := store.GetState(storage.StateDayStartValue); v != "4001200" {
		t.Fatalf("日初总资产应为 4001200, 实际 %q", v)
	}

	// 同日行情变化不覆盖快照
	quotes.set("000001.SZ", 10.00, 15.00, 14.99, 15.00)
	eng.dayStartSnapshot(ctx)
	if v, _ := store.GetState(storage.StateDayStartValue); v != "4001200" {
		t.Fatalf("当日重复执行不应覆盖快照, 实际 %q", v)
	}
}

func TestDailyPnlUnrealizedFromCostBasis(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	ctx := context.Background()

	// 老仓：成本10，当日开盘前已涨到12并全天持平。
	// 当日总资产几乎不变，但存量浮盈 100*(12-10)=200 必须体现在浮动盈亏里。
	store.UpsertPosition("000001.SZ", 100, 100, 10.00)
	quotes.set("000001.SZ", 10.00, 12.00, 11.99, 12.00)

	setClock(eng, 2026, 8, 28, 9, 31)
	if err := eng.dayStartSnapshot(ctx); err != nil {
		t.Fatalf("日初快照失败: %v", err)
	}

	// 15:05 前不结算
	setClock(eng, 2026, 8, 28, 15, 0)
	eng.dailyPnl(ctx)
	if list, _ := store.ListDailyPnl("", ""); len(list) != 0 {
		t.Fatalf("15:05 前不应结算, 实际 %d 条", len(list))
	}

	setClock(eng, 2026, 8, 28, 15, 6)
	if err := eng.dailyPnl(ctx); err != nil {
		t.Fatalf("日终结算失败: %v", err)
	}

	list, _ := store.ListDailyPnl("", "")
	if len(list) != 1 {
		t.Fatalf("每日盈亏应为1条, 实际 %d", len(list))
	}
	p := list[0]
	if p.Date != "2026-08-28" {
		t.Fatalf("结算日期应为 2026-08-28, 实际 %s", p.Date)
	}
	if !almostEqual(p.StartValue, 4001200) || !almostEqual(p.EndValue, 4001200) {
		t.Fatalf("日初/日终总资产应为 4001200/4001200, 实际 %f/%f", p.StartValue, p.EndValue)
	}
	if !almostEqual(p.UnrealizedPnl, 200) {
		t.Fatalf("浮动盈亏应按成本计算为 200, 实际 %f", p.UnrealizedPnl)
	}
	if p.Trades != 0 || p.Commission != 0 {
		t.Fatalf("无成交日笔数/费用应为0, 实际 %d/%f", p.Trades, p.Commission)
	}

	// 当日只结算一次
	quotes.set("000001.SZ", 10.00, 13.00, 12.99, 13.00)
	eng.dailyPnl(ctx)
	list, _ = store.ListDailyPnl("", "")
	if len(list) != 1 || !almostEqual(list[0].UnrealizedPnl, 200) {
		t.Fatalf("当日重复执行不应覆盖结果: %+v", list)
	}
}

func TestRefreshAccountValue(t *testing.T) {
	eng, store, quotes := newTestEngine(t, testConfigYaml)
	quotes.set("000001.SZ", 10.00, 10.00, 9.99, 10.00)

	buy, _ := eng.CreateOrder(context.Background(), &OrderRequest{
		Symbol: "000001.SZ", Direction: "BUY", OrderType: "AGGRESSIVE", Quantity: 100,
	})
	if buy.Status != storage.OrderStatusFilled {
		t.Fatalf("买入应成交, 实际 %s", buy.Status)
	}

	// 行情上涨后按最新价重估
	quotes.set("000001.SZ", 10.00, 10.50, 10.49, 10.50)
	totalValue, err := eng.RefreshAccountValue(context.Background())
	if err != nil {
		t.Fatalf("重估失败: %v", err)
	}
	// 3998995(现金) + 100 * 10.50
	if !almostEqual(totalValue, 4000045) {
		t.Fatalf("总资产应为 4000045, 实际 %f", totalValue)
	}
	account, _ := store.GetAccount()
	if !almostEqual(account.TotalValue, 4000045) {
		t.Fatalf("账户总资产应落库, 实际 %f", account.TotalValue)
	}
}
