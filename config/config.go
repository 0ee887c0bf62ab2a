package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 模拟交易系统配置
type Config struct {
	System struct {
		LogLevel string `yaml:"log_level"` // 日志级别: debug/info/warn/error
		Timezone string `yaml:"timezone"`  // 时区，固定建议 Asia/Shanghai
	} `yaml:"system"`

	// 模拟交易引擎配置
	Paper struct {
		DBPath      string  `yaml:"db_path"`      // 数据库文件路径
		InitialCash float64 `yaml:"initial_cash"` // 初始资金（仅首次启动注入）
		PollSeconds float64 `yaml:"poll_seconds"` // 后台轮询间隔（秒）

		AllowOutOfSession bool `yaml:"allow_out_of_session"` // 允许盘外下单（测试用）

		OrderValueLimit   float64 `yaml:"order_value_limit"`   // 单笔委托金额上限
		DailyTradesWarn   int     `yaml:"daily_trades_warn"`   // 当日成交笔数告警阈值
		DailyTradesReject int     `yaml:"daily_trades_reject"` // 当日成交笔数拒单阈值

		AggressiveTimeoutSeconds int `yaml:"aggressive_timeout_seconds"` // 对价单超时（秒）
		LimitTimeoutSeconds      int `yaml:"limit_timeout_seconds"`      // 限价单超时（秒）
	} `yaml:"paper"`

	// 行情配置
	Quote struct {
		CacheSeconds   int `yaml:"cache_seconds"`    // 行情缓存有效期（秒）
		MaxAgeSeconds  int `yaml:"max_age_seconds"`  // 行情最大允许延迟（秒），超过视为过期
		TimeoutSeconds int `yaml:"timeout_seconds"`  // HTTP 请求超时（秒）
		RatePerSecond  int `yaml:"rate_per_second"`  // 行情源限速（次/秒）
	} `yaml:"quote"`

	// Web 服务配置
	Web struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"` // 监听地址（默认 0.0.0.0）
		Port    int    `yaml:"port"` // 监听端口（默认 8080）
	} `yaml:"web"`

	// 监控配置
	Metrics struct {
		Enabled         bool `yaml:"enabled"`
		CollectInterval int  `yaml:"collect_interval"` // 系统指标采集间隔（秒，默认60）
	} `yaml:"metrics"`

	// 通知配置
	Notifications struct {
		Enabled bool `yaml:"enabled"`

		Telegram struct {
			Enabled  bool   `yaml:"enabled"`
			BotToken string `yaml:"bot_token"`
			ChatID   string `yaml:"chat_id"`
		} `yaml:"telegram"`

		Webhook struct {
			Enabled bool   `yaml:"enabled"`
			URL     string `yaml:"url"`
			Timeout int    `yaml:"timeout"` // 超时时间（秒，默认3）
		} `yaml:"webhook"`

		// 通知规则：哪些事件需要通知
		Rules struct {
			OrderFilled   bool `yaml:"order_filled"`
			OrderRejected bool `yaml:"order_rejected"`
			KillSwitch    bool `yaml:"kill_switch"`
			EngineError   bool `yaml:"engine_error"`
		} `yaml:"rules"`
	} `yaml:"notifications"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes 从字节数据加载配置
func LoadConfigFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults 填充默认值
func (c *Config) applyDefaults() {
	if c.System.LogLevel == "" {
		c.System.LogLevel = "info"
	}
	if c.System.Timezone == "" {
		c.System.Timezone = "Asia/Shanghai"
	}

	if c.Paper.DBPath == "" {
		c.Paper.DBPath = "./data/papermesh.db"
	}
	if c.Paper.InitialCash == 0 {
		c.Paper.InitialCash = 4000000
	}
	if c.Paper.PollSeconds == 0 {
		c.Paper.PollSeconds = 2
	}
	if c.Paper.OrderValueLimit == 0 {
		c.Paper.OrderValueLimit = 500000
	}
	if c.Paper.DailyTradesWarn == 0 {
		c.Paper.DailyTradesWarn = 10
	}
	if c.Paper.DailyTradesReject == 0 {
		c.Paper.DailyTradesReject = 15
	}
	if c.Paper.AggressiveTimeoutSeconds == 0 {
		c.Paper.AggressiveTimeoutSeconds = 5
	}
	if c.Paper.LimitTimeoutSeconds == 0 {
		c.Paper.LimitTimeoutSeconds = 180
	}

	if c.Quote.CacheSeconds == 0 {
		c.Quote.CacheSeconds = 2
	}
	if c.Quote.MaxAgeSeconds == 0 {
		c.Quote.MaxAgeSeconds = 5
	}
	if c.Quote.TimeoutSeconds == 0 {
		c.Quote.TimeoutSeconds = 5
	}
	if c.Quote.RatePerSecond == 0 {
		c.Quote.RatePerSecond = 5
	}

	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}

	if c.Metrics.CollectInterval == 0 {
		c.Metrics.CollectInterval = 60
	}
	if c.Notifications.Webhook.Timeout == 0 {
		c.Notifications.Webhook.Timeout = 3
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Paper.InitialCash < 0 {
		return fmt.Errorf("initial_cash 不能为负数: %f", c.Paper.InitialCash)
	}
	if c.Paper.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds 必须大于0: %f", c.Paper.PollSeconds)
	}
	if c.Paper.OrderValueLimit <= 0 {
		return fmt.Errorf("order_value_limit 必须大于0: %f", c.Paper.OrderValueLimit)
	}
	if c.Paper.DailyTradesWarn < 0 || c.Paper.DailyTradesReject < 0 {
		return fmt.Errorf("当日成交笔数阈值不能为负数")
	}
	if c.Paper.DailyTradesWarn > c.Paper.DailyTradesReject {
		return fmt.Errorf("daily_trades_warn (%d) 不能大于 daily_trades_reject (%d)",
			c.Paper.DailyTradesWarn, c.Paper.DailyTradesReject)
	}
	if c.Paper.AggressiveTimeoutSeconds < 1 || c.Paper.LimitTimeoutSeconds < 1 {
		return fmt.Errorf("订单超时时间至少为1秒")
	}
	if c.Quote.MaxAgeSeconds < c.Quote.CacheSeconds {
		return fmt.Errorf("quote.max_age_seconds (%d) 不能小于 quote.cache_seconds (%d)",
			c.Quote.MaxAgeSeconds, c.Quote.CacheSeconds)
	}
	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		return fmt.Errorf("web.port 无效: %d", c.Web.Port)
	}
	return nil
}
