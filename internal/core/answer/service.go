package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
	"github.com/jinford/doc-rag/internal/core/retrieval"
)

const (
	// maxGenerateAttempts は回答生成の最大試行回数
	maxGenerateAttempts = 3

	// noInfoAnswer はコンテキストが得られない場合の回答
	noInfoAnswer = "I don't have enough information to answer this question."
)

// generateBackoffBase はリトライ間隔の初期値（試行ごとに倍増）
var generateBackoffBase = 1 * time.Second

// Retriever は関連コンテキストの検索インターフェース
type Retriever interface {
	Search(ctx context.Context, params retrieval.Params) ([]retrieval.Result, error)
}

// Params は質問応答リクエストのパラメータを表す
type Params struct {
	Query         string
	DocumentIDs   []uuid.UUID
	IncludeImages bool
	MaxResults    int
}

// Result は質問応答の結果を表す
type Result struct {
	Query          string        `json:"query"`
	Answer         string        `json:"answer"`
	Citations      []Citation    `json:"citations"`
	ProcessingTime time.Duration `json:"processingTime"`
}

// Service は質問応答のユースケースを提供する
// 検索、コンテキスト組み立て、回答生成、引用抽出を1つの操作に束ねる
type Service struct {
	retriever        Retriever
	generator        Generator
	tokenCounter     TokenCounter // オプショナル
	maxContextTokens int
	logger           *slog.Logger
}

type serviceOptions struct {
	tokenCounter     TokenCounter
	maxContextTokens int
	logger           *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithTokenBudget はコンテキストのトークン上限と計測器を設定する
func WithTokenBudget(counter TokenCounter, maxTokens int) ServiceOption {
	return func(o *serviceOptions) {
		o.tokenCounter = counter
		o.maxContextTokens = maxTokens
	}
}

// WithAnswerLogger は Service にロガーを設定する
func WithAnswerLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は Service を生成する
func NewService(retriever Retriever, generator Generator, opts ...ServiceOption) *Service {
	options := &serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Service{
		retriever:        retriever,
		generator:        generator,
		tokenCounter:     options.tokenCounter,
		maxContextTokens: options.maxContextTokens,
		logger:           options.logger,
	}
}

// Ask は質問に対してRAGベースの回答と引用を返す
// インデックスに到達できない場合もエラーにはせず、情報なしの回答を返す
func (s *Service) Ask(ctx context.Context, params Params) (*Result, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("質問が空です")
	}

	start := time.Now()

	results, err := s.retriever.Search(ctx, retrieval.Params{
		Query:         params.Query,
		DocumentIDs:   params.DocumentIDs,
		IncludeImages: params.IncludeImages,
		MaxResults:    params.MaxResults,
	})
	if err != nil {
		if !errors.Is(err, index.ErrUnavailable) {
			return nil, fmt.Errorf("コンテキストの検索に失敗: %w", err)
		}
		// インデックス停止時はコンテキストなしとして続行する
		s.logger.Warn("インデックスに到達できないためコンテキストなしで回答します",
			slog.String("error", err.Error()),
		)
		results = nil
	}

	if len(results) == 0 {
		return &Result{
			Query:          params.Query,
			Answer:         noInfoAnswer,
			Citations:      []Citation{},
			ProcessingTime: time.Since(start),
		}, nil
	}

	contextStr := BuildContext(results, params.Query)
	if s.tokenCounter != nil && s.maxContextTokens > 0 {
		contextStr = s.tokenCounter.Trim(contextStr, s.maxContextTokens)
	}

	images := collectImages(results)

	req := CompletionRequest{
		SystemPrompt: BuildSystemPrompt(len(images) > 0),
		UserPrompt:   BuildUserPrompt(contextStr, params.Query),
		Images:       images,
	}

	answer := s.generate(ctx, req)
	citations := ExtractCitations(answer, results)

	return &Result{
		Query:          params.Query,
		Answer:         answer,
		Citations:      citations,
		ProcessingTime: time.Since(start),
	}, nil
}

// generate は回答生成を最大3回まで指数バックオフ付きで試行する
// 全試行が失敗した場合は謝罪文を回答として返し、呼び出し側を失敗させない
func (s *Service) generate(ctx context.Context, req CompletionRequest) string {
	backoff := generateBackoffBase

	var lastErr error
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		answer, err := s.generator.GenerateCompletion(ctx, req)
		if err == nil {
			return answer
		}
		lastErr = err

		s.logger.Error("回答の生成に失敗しました",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxGenerateAttempts),
			slog.String("error", err.Error()),
		)

		if attempt == maxGenerateAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Sprintf("I encountered an error while generating a response: %s", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Sprintf("I encountered an error while generating a response: %s", lastErr)
}

// collectImages はビジョン対応モデルに添付する画像を検索結果から集める
func collectImages(results []retrieval.Result) []ImageAttachment {
	var images []ImageAttachment
	for _, result := range results {
		if result.Modality != document.ModalityImage || result.ImagePath == nil || *result.ImagePath == "" {
			continue
		}

		label := fmt.Sprintf("Image from %s", result.DocumentName)
		if result.PageNumber != nil {
			label = fmt.Sprintf("Image from %s (Page %d)", result.DocumentName, *result.PageNumber)
		}

		images = append(images, ImageAttachment{
			Path:  *result.ImagePath,
			Label: label,
		})
	}
	return images
}
