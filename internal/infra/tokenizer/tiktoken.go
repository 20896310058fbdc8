package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/doc-rag/internal/core/answer"
)

// Counter は tiktoken によるトークン計測の実装
type Counter struct {
	encoder *tiktoken.Tiktoken
}

// NewCounter は新しい Counter を作成する
// cl100k_baseエンコーダを使用（OpenAIのtext-embedding-3-smallと互換）
func NewCounter() (*Counter, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &Counter{encoder: encoder}, nil
}

// コンパイル時の型チェック
var _ answer.TokenCounter = (*Counter)(nil)

// CountTokens はテキストのトークン数を返す
func (c *Counter) CountTokens(text string) int {
	return len(c.encoder.Encode(text, nil, nil))
}

// Trim は maxTokens を超える部分を末尾から切り詰める
func (c *Counter) Trim(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}

	tokens := c.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return c.encoder.Decode(tokens[:maxTokens])
}
