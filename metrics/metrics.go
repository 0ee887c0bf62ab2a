package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单指标
var (
	// OrdersTotal 订单计数（按方向和终态）
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papermesh_orders_total",
		Help: "订单总数（按方向和状态）",
	}, []string{"direction", "status"})

	// RejectsTotal 拒单计数（按拒单代码）
	RejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papermesh_rejects_total",
		Help: "拒单总数（按拒单代码）",
	}, []string{"code"})

	// FillsTotal 成交计数
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papermesh_fills_total",
		Help: "成交总数（按方向）",
	}, []string{"direction"})

	// FeesTotal 累计费用
	FeesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papermesh_fees_total",
		Help: "累计交易费用（元）",
	})
)

// 账户指标
var (
	AccountCash = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_account_cash",
		Help: "账户现金（元）",
	})

	AccountTotalValue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_account_total_value",
		Help: "账户总资产（元）",
	})

	OpenOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_open_orders",
		Help: "当前挂单数",
	})

	PositionCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_positions",
		Help: "当前持仓品种数",
	})
)

// 引擎指标
var (
	// TickDuration 后台轮询单次耗时
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "papermesh_tick_duration_seconds",
		Help:    "后台轮询单次耗时（秒）",
		Buckets: prometheus.DefBuckets,
	})

	TickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papermesh_tick_errors_total",
		Help: "后台轮询出错次数",
	})

	QuoteFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papermesh_quote_fetch_errors_total",
		Help: "行情获取失败次数",
	})

	KillSwitchState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_kill_switch",
		Help: "熔断开关状态（1=开启）",
	})
)

// 系统指标
var (
	SystemCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_system_cpu_percent",
		Help: "进程所在主机CPU使用率",
	})

	SystemMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_system_memory_percent",
		Help: "进程所在主机内存使用率",
	})

	SystemMemoryUsedMB = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papermesh_system_memory_used_mb",
		Help: "进程所在主机已用内存（MB）",
	})
)
