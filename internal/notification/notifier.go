package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"
)

// Message 一条待投递的渠道消息
type Message struct {
	Channel string         // email, webhook, websocket
	UserID  string         // 接收用户（websocket 渠道需要）
	To      string         // 接收地址（邮箱/URL）
	Subject string         // 主题
	Body    string         // 内容
	Data    map[string]any // 附加数据
}

// Notifier 通知渠道接口
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

// MultiNotifier 多渠道通知器，按消息的 Channel 字段路由
type MultiNotifier struct {
	email     *EmailNotifier
	webhook   *WebhookNotifier
	websocket *WebSocketNotifier
}

// NewMultiNotifier 创建多渠道通知器。未配置的渠道传 nil。
func NewMultiNotifier(email *EmailNotifier, webhook *WebhookNotifier, hub *WebSocketHub) *MultiNotifier {
	return &MultiNotifier{
		email:     email,
		webhook:   webhook,
		websocket: NewWebSocketNotifier(hub),
	}
}

// Send 发送消息到指定渠道
func (m *MultiNotifier) Send(ctx context.Context, msg *Message) error {
	var notifier Notifier
	switch msg.Channel {
	case "email":
		if m.email == nil {
			return fmt.Errorf("邮件渠道未配置")
		}
		notifier = m.email
	case "webhook":
		if m.webhook == nil {
			return fmt.Errorf("webhook 渠道未配置")
		}
		notifier = m.webhook
	case "websocket":
		notifier = m.websocket
	default:
		return fmt.Errorf("不支持的通知渠道: %s", msg.Channel)
	}
	return notifier.Send(ctx, msg)
}

// ============================================================================
// 邮件渠道
// ============================================================================

// EmailConfig SMTP 配置
type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	FromName string
}

// EmailNotifier SMTP 邮件通知器
type EmailNotifier struct {
	config *EmailConfig
}

// NewEmailNotifier 创建邮件通知器
func NewEmailNotifier(config *EmailConfig) *EmailNotifier {
	if config == nil {
		return nil
	}
	return &EmailNotifier{config: config}
}

// Send 发送邮件
func (e *EmailNotifier) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return fmt.Errorf("邮件缺少收件人")
	}

	var body bytes.Buffer
	body.WriteString(msg.Body)

	message := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		e.config.FromName,
		e.config.From,
		msg.To,
		msg.Subject,
		body.String(),
	)

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.SMTPHost)
	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)

	if err := smtp.SendMail(addr, auth, e.config.From, []string{msg.To}, []byte(message)); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// ============================================================================
// Webhook 渠道
// ============================================================================

// WebhookConfig Webhook 配置
type WebhookConfig struct {
	DefaultURL string
	Timeout    time.Duration
	Headers    map[string]string
}

// WebhookNotifier Webhook 通知器
type WebhookNotifier struct {
	config *WebhookConfig
	client *http.Client
}

// NewWebhookNotifier 创建 Webhook 通知器
func NewWebhookNotifier(config *WebhookConfig) *WebhookNotifier {
	if config == nil {
		return nil
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Send 发送 Webhook
func (w *WebhookNotifier) Send(ctx context.Context, msg *Message) error {
	url := msg.To
	if url == "" {
		url = w.config.DefaultURL
	}
	if url == "" {
		return fmt.Errorf("Webhook URL 未配置")
	}

	payload := map[string]any{
		"userId":    msg.UserID,
		"subject":   msg.Subject,
		"body":      msg.Body,
		"data":      msg.Data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化 Webhook 负载失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("创建 Webhook 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "VocabFlow-Notifier/1.0")
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 Webhook 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Webhook 返回错误状态: %d", resp.StatusCode)
	}
	return nil
}

// ============================================================================
// WebSocket 渠道
// ============================================================================

// WebSocketNotifier WebSocket 通知器
type WebSocketNotifier struct {
	hub *WebSocketHub
}

// NewWebSocketNotifier 创建 WebSocket 通知器
func NewWebSocketNotifier(hub *WebSocketHub) *WebSocketNotifier {
	return &WebSocketNotifier{hub: hub}
}

// Send 推送 WebSocket 消息
func (ws *WebSocketNotifier) Send(ctx context.Context, msg *Message) error {
	if ws == nil || ws.hub == nil {
		return fmt.Errorf("WebSocket hub 未配置")
	}
	if msg.UserID == "" {
		return fmt.Errorf("WebSocket 通知缺少用户信息")
	}
	payload := map[string]any{
		"subject":   msg.Subject,
		"body":      msg.Body,
		"data":      msg.Data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return ws.hub.SendToUser(msg.UserID, payload)
}
