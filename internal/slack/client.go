package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"anonrelay/backend/internal/domain"
)

// ErrNotConfigured Bot 凭证未配置错误
var ErrNotConfigured = errors.New("slack bot token is not configured")

// Client Slack Web API 客户端。
// 只覆盖中继需要的两个操作：解析私信通道与投递消息。
// 不做自动重试：主投递要求快速失败，重复投递会造成匿名消息重复送达。
type Client struct {
	http     *http.Client
	baseURL  string
	botToken string
	log      *zap.Logger
}

// NewClient 创建 Slack API 客户端。
// baseURL 留空时使用官方地址；测试时可指向 httptest 服务器。
func NewClient(botToken, baseURL string, log *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		botToken: strings.TrimSpace(botToken),
		log:      log,
	}
}

// openConversationRequest conversations.open 请求体
type openConversationRequest struct {
	Users string `json:"users"`
}

// openConversationResponse conversations.open 响应体
type openConversationResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// OpenConversation 解析用户的私信通道并返回通道ID。
func (c *Client) OpenConversation(ctx context.Context, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	body, err := c.postJSON(ctx, "/conversations.open", openConversationRequest{Users: userID})
	if err != nil {
		return "", err
	}

	var out openConversationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode conversations.open response: %w", err)
	}
	if !out.OK {
		return "", fmt.Errorf("slack conversations.open failed: %s", apiErrorCode(out.Error))
	}
	if out.Channel.ID == "" {
		return "", fmt.Errorf("slack conversations.open returned empty channel id")
	}

	return out.Channel.ID, nil
}

// postMessageRequest chat.postMessage 请求体
type postMessageRequest struct {
	Channel     string         `json:"channel"`
	Text        string         `json:"text"`
	UnfurlLinks bool           `json:"unfurl_links"`
	Blocks      []domain.Block `json:"blocks,omitempty"`
}

// postMessageResponse chat.postMessage 响应体
type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// PostMessage 向通道投递消息（text 为通知预览的纯文本回退）。
func (c *Client) PostMessage(ctx context.Context, channelID, text string, blocks []domain.Block) error {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if text == "" {
		return fmt.Errorf("text is required")
	}

	body, err := c.postJSON(ctx, "/chat.postMessage", postMessageRequest{
		Channel:     channelID,
		Text:        text,
		UnfurlLinks: false,
		Blocks:      blocks,
	})
	if err != nil {
		return err
	}

	var out postMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode chat.postMessage response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("slack chat.postMessage failed: %s", apiErrorCode(out.Error))
	}

	return nil
}

// postJSON 发送带 Bearer 认证的 JSON POST 请求并返回响应体。
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	if c.botToken == "" {
		return nil, ErrNotConfigured
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read slack response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("slack api %s http %d", path, resp.StatusCode)
	}

	return body, nil
}

// apiErrorCode 规范化 Slack API 错误码。
func apiErrorCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "unknown_error"
	}
	return code
}
