// Package narrative 呼叫 LLM，將技術面與月營收表解讀成繁體中文的操作建議。
package narrative

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"
)

// Fallback 分析失敗時回傳的替代文字，通知流程照常送出。
const Fallback = "分析服務暫時無法使用"

const systemPrompt = "使用繁體中文回答：你是個一位專業股票分析師，請幫我解讀以下技術面訊息和月盈利狀況，並幫我針對長期(約半年)及短期(約一個月)提供交易策略"

const (
	temperature = 1
	maxTokens   = 4096
)

// Analyst 以 OpenAI 相容端點產生個股解讀。
type Analyst struct {
	client *openai.Client
	model  string
}

// NewAnalyst baseURL 可指向任何 OpenAI 相容服務。
func NewAnalyst(apiKey, baseURL, model string) *Analyst {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Analyst{client: openai.NewClientWithConfig(cfg), model: model}
}

// Analyze 輸入個股技術面文字與月營收表文字，回傳模型解讀。
// 呼叫失敗時回傳 Fallback 與原始錯誤，呼叫端決定是否照常通知。
func (a *Analyst) Analyze(ctx context.Context, technical, revenue string) (string, error) {
	var sb strings.Builder
	sb.WriteString("技術面訊息：\n")
	sb.WriteString(technical)
	if revenue != "" {
		sb.WriteString("\n\n月營收狀況：\n")
		sb.WriteString(revenue)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("LLM 分析失敗，改用替代文字")
		return Fallback, err
	}
	if len(resp.Choices) == 0 {
		log.Warn().Msg("LLM 回應無內容，改用替代文字")
		return Fallback, nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
