package notify

import (
	"papermesh/config"
	"papermesh/logger"
)

// Channel 通知渠道
type Channel interface {
	Name() string
	Send(title, message string) error
}

// Notifier 事件通知器。按配置规则筛选事件，异步推送到各渠道。
type Notifier struct {
	channels []Channel
	rules    config.Config
	enabled  bool
}

// NewNotifier 根据配置创建通知器
func NewNotifier(cfg *config.Config) *Notifier {
	n := &Notifier{enabled: cfg.Notifications.Enabled, rules: *cfg}
	if !n.enabled {
		return n
	}

	if cfg.Notifications.Telegram.Enabled {
		n.channels = append(n.channels, NewTelegramChannel(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		))
	}
	if cfg.Notifications.Webhook.Enabled {
		n.channels = append(n.channels, NewWebhookChannel(
			cfg.Notifications.Webhook.URL,
			cfg.Notifications.Webhook.Timeout,
		))
	}

	logger.Info("✅ 通知器已启动 (渠道数: %d)", len(n.channels))
	return n
}

// UpdateConfig 热更新通知规则
func (n *Notifier) UpdateConfig(cfg *config.Config) {
	if n == nil {
		return
	}
	n.rules = *cfg
}

func (n *Notifier) send(title, message string) {
	for _, ch := range n.channels {
		go func(c Channel) {
			if err := c.Send(title, message); err != nil {
				logger.Warn("⚠️ 通知发送失败 [%s]: %v", c.Name(), err)
			}
		}(ch)
	}
}

// OrderFilled 成交通知
func (n *Notifier) OrderFilled(message string) {
	if n == nil || !n.enabled || !n.rules.Notifications.Rules.OrderFilled {
		return
	}
	n.send("📈 订单成交", message)
}

// OrderRejected 拒单通知
func (n *Notifier) OrderRejected(message string) {
	if n == nil || !n.enabled || !n.rules.Notifications.Rules.OrderRejected {
		return
	}
	n.send("🚫 订单被拒", message)
}

// KillSwitch 熔断开关通知
func (n *Notifier) KillSwitch(message string) {
	if n == nil || !n.enabled || !n.rules.Notifications.Rules.KillSwitch {
		return
	}
	n.send("🛑 熔断开关", message)
}

// EngineError 引擎错误通知
func (n *Notifier) EngineError(message string) {
	if n == nil || !n.enabled || !n.rules.Notifications.Rules.EngineError {
		return
	}
	n.send("❌ 引擎错误", message)
}
