// Package llm は言語モデル（OpenAI互換API）との連携を提供する。
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hitoshi/foodwallet/internal/model"
)

// ErrEmptyResponse は応答に選択肢が含まれていないことを表す。
var ErrEmptyResponse = errors.New("language model returned no choices")

// Completer はメッセージ列から1件の応答テキストを生成する言語モデルのインターフェース。
// 応答の形式は保証されない。
type Completer interface {
	Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error)
}

// Client はgo-openaiを使ったCompleterの実装。
// LLM_BASE_URL を差し替えることで任意のOpenAI互換エンドポイントを利用できる。
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient は新しいClientを生成する。
func NewClient(apiKey, baseURL, modelName string, logger *slog.Logger) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		api:    openai.NewClientWithConfig(config),
		model:  modelName,
		logger: logger,
	}
}

// Complete はチャット補完APIを1回呼び出し、最初の選択肢の本文を返す。
// リトライは行わない。タイムアウトは ctx で指定する。
func (c *Client) Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toChatMessages(messages),
		Temperature: temperature,
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "言語モデルの呼び出しに失敗しました",
			slog.String("model", c.model),
			slog.Int("message_count", len(messages)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.ErrorContext(ctx, "言語モデルの応答が空でした", slog.String("model", c.model))
		return "", ErrEmptyResponse
	}

	c.logger.DebugContext(ctx, "言語モデルの応答を受信しました",
		slog.String("model", c.model),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(messages []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
