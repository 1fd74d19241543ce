// Package notify 推播 LINE 訊息：長文切塊、個股摘要與分析通知。
package notify

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

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"twstockai/internal/model"
)

// ErrNotify 推播失敗。
var ErrNotify = errors.New("notify: push failed")

// LINE 單則文字訊息上限（字元數，依 Unicode 字元計）。
const maxMessageRunes = 2000

const defaultPushURL = "https://api.line.me/v2/bot/message/push"

// Sender 單則文字推播。
type Sender interface {
	Push(ctx context.Context, to, text string) error
}

// LineClient LINE Messaging API 客戶端。
type LineClient struct {
	HTTPClient  *http.Client
	AccessToken string
	PushURL     string
}

func NewLineClient(accessToken string) *LineClient {
	return &LineClient{
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		AccessToken: accessToken,
		PushURL:     defaultPushURL,
	}
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Push 送出單則文字訊息。非 2xx 時從回應本文取出 LINE 的錯誤說明。
func (c *LineClient) Push(ctx context.Context, to, text string) error {
	body, err := json.Marshal(pushRequest{
		To:       to,
		Messages: []textMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotify, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := gjson.GetBytes(raw, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		log.Warn().Int("status", resp.StatusCode).Str("message", msg).Msg("LINE 推播被拒")
		return fmt.Errorf("%w: http %d: %s", ErrNotify, resp.StatusCode, msg)
	}
	return nil
}

// Notifier 對單一收件人的通知流程。
type Notifier struct {
	Sender Sender
	To     string
}

func NewNotifier(sender Sender, to string) *Notifier {
	return &Notifier{Sender: sender, To: to}
}

// SendText 超過單則上限時依序切塊送出；任一塊失敗即中止，不送後續塊。
func (n *Notifier) SendText(ctx context.Context, text string) error {
	for i, chunk := range splitRunes(text, maxMessageRunes) {
		if err := n.Sender.Push(ctx, n.To, chunk); err != nil {
			return fmt.Errorf("第 %d 塊推播失敗: %w", i+1, err)
		}
	}
	return nil
}

// SendStockSummary 推播選股結果摘要。
func (n *Notifier) SendStockSummary(ctx context.Context, stocks []model.MergedStock) error {
	var sb strings.Builder
	sb.WriteString("📈 今日法人連買選股\n")
	sb.WriteString(fmt.Sprintf("共 %d 檔符合條件\n", len(stocks)))
	for _, s := range stocks {
		sb.WriteString(fmt.Sprintf("\n%s %s", s.Code, s.Name))
		if s.Price != nil {
			sb.WriteString(fmt.Sprintf("\n  成交價: %.2f", *s.Price))
		}
		if s.ChangePct != nil {
			sb.WriteString(fmt.Sprintf("  漲跌幅: %+.2f%%", *s.ChangePct))
		}
		if s.Volume != nil {
			sb.WriteString(fmt.Sprintf("\n  成交張數: %.0f", *s.Volume))
		}
		if s.NetBuyTotal != nil {
			sb.WriteString(fmt.Sprintf("  法人買賣超: %+.0f 張", *s.NetBuyTotal))
		}
		sb.WriteString("\n")
	}
	return n.SendText(ctx, sb.String())
}

// SendStockAnalysis 推播單檔個股的分析內容。
func (n *Notifier) SendStockAnalysis(ctx context.Context, code, name, analysis string) error {
	text := fmt.Sprintf("🔍 %s %s 個股分析\n\n%s", code, name, analysis)
	return n.SendText(ctx, text)
}

// splitRunes 依 Unicode 字元數切塊，維持原文順序。
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	for len(runes) > size {
		chunks = append(chunks, string(runes[:size]))
		runes = runes[size:]
	}
	return append(chunks, string(runes))
}
