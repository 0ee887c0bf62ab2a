package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"papermesh/utils"
)

// WebhookChannel 通用 Webhook 通知渠道，POST JSON
type WebhookChannel struct {
	url    string
	client *http.Client
}

// NewWebhookChannel 创建 Webhook 渠道
func NewWebhookChannel(url string, timeoutSeconds int) *WebhookChannel {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 3
	}
	return &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// Name 渠道名称
func (w *WebhookChannel) Name() string { return "webhook" }

// Send 发送通知
func (w *WebhookChannel) Send(title, message string) error {
	payload := map[string]string{
		"title":   title,
		"message": message,
		"time":    utils.FormatTime(utils.NowCN()),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}

	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("发送 Webhook 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("Webhook 返回状态码 %d", resp.StatusCode)
	}
	return nil
}
