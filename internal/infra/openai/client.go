package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/doc-rag/internal/core/answer"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultVisionModel は画像添付時に使用するデフォルトモデル
	DefaultVisionModel = "gpt-4o"

	// DefaultTemperature は生成のデフォルト温度
	DefaultTemperature = 0.2

	// DefaultMaxTokens は生成のデフォルト最大トークン数
	DefaultMaxTokens = 1024

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Client は OpenAI API を使用した回答生成クライアント
// 画像添付がある場合はビジョン対応モデルへ切り替える
type Client struct {
	client      openai.Client
	model       string
	visionModel string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

type clientOptions struct {
	model       string
	visionModel string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithModel は生成モデルを上書きする
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithVisionModel は画像添付時のモデルを上書きする
func WithVisionModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.visionModel = model
		}
	}
}

// WithTemperature は生成温度を上書きする
func WithTemperature(temperature float64) ClientOption {
	return func(o *clientOptions) {
		o.temperature = temperature
	}
}

// WithMaxTokens は最大トークン数を上書きする
func WithMaxTokens(maxTokens int) ClientOption {
	return func(o *clientOptions) {
		if maxTokens > 0 {
			o.maxTokens = maxTokens
		}
	}
}

// WithTimeout はAPIコールのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithClientLogger は Client にロガーを設定する
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:       DefaultModel,
		visionModel: DefaultVisionModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Client{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		model:       options.model,
		visionModel: options.visionModel,
		temperature: options.temperature,
		maxTokens:   options.maxTokens,
		timeout:     options.timeout,
		logger:      options.logger,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion は OpenAI API を使用して回答を生成する
// レート制限エラーはExponential Backoffでリトライする
func (c *Client) GenerateCompletion(ctx context.Context, req answer.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := c.buildMessages(req)

	model := c.model
	if len(req.Images) > 0 {
		model = c.visionModel
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * BaseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(model),
			Messages:    messages,
			Temperature: openai.Float(c.temperature),
		}
		if c.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(c.maxTokens))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// buildMessages はリクエストをOpenAIのメッセージ形式へ変換する
// 画像はbase64のデータURLとして添付し、読めない画像は読み飛ばす
func (c *Client) buildMessages(req answer.CompletionRequest) []openai.ChatCompletionMessageParamUnion {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(req.SystemPrompt),
	}

	if len(req.Images) == 0 {
		messages = append(messages, openai.UserMessage(req.UserPrompt))
		return messages
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.UserPrompt),
	}

	for _, image := range req.Images {
		dataURL, err := encodeImageDataURL(image.Path)
		if err != nil {
			c.logger.Warn("failed to attach image",
				slog.String("path", image.Path),
				slog.String("error", err.Error()),
			)
			continue
		}

		parts = append(parts,
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: dataURL,
			}),
			openai.TextContentPart(image.Label),
		)
	}

	messages = append(messages, openai.UserMessage(parts))
	return messages
}

// encodeImageDataURL は画像ファイルをbase64のデータURLへ変換する
func encodeImageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// インターフェース実装の確認
var _ answer.Generator = (*Client)(nil)
