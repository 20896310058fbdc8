package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/doc-rag/internal/core/answer"
	"github.com/jinford/doc-rag/internal/core/embedding"
	"github.com/jinford/doc-rag/internal/core/ingestion"
	"github.com/jinford/doc-rag/internal/core/retrieval"
	"github.com/jinford/doc-rag/internal/infra/openai"
	"github.com/jinford/doc-rag/internal/infra/postgres"
	"github.com/jinford/doc-rag/internal/infra/tokenizer"
	"github.com/jinford/doc-rag/pkg/config"
	"github.com/jinford/doc-rag/pkg/db"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Config     *config.Config
	Database   *db.DB
	Repository *postgres.Repository
	Store      *postgres.VectorStore
	Dispatcher *embedding.Dispatcher
}

// NewAppContext は設定ファイルを読み込み、DBに接続して AppContext を作成する
func NewAppContext(ctx context.Context, envFile string) (*AppContext, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	database, err := db.New(ctx, db.ParamsFromConfig(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	embedder := openai.NewEmbedder(
		cfg.OpenAI.APIKey,
		openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
		openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
	)

	return &AppContext{
		Config:     cfg,
		Database:   database,
		Repository: postgres.NewRepository(database.Pool),
		Store:      postgres.NewVectorStore(database.Pool),
		Dispatcher: embedding.NewDispatcher(embedder, embedding.WithDispatcherLogger(slog.Default())),
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Database != nil {
		ac.Database.Close()
	}
}

// newIngestionService はドキュメント取り込みサービスを組み立てる
func (ac *AppContext) newIngestionService() *ingestion.Service {
	return ingestion.NewService(
		ac.Repository,
		ac.Store,
		ac.Dispatcher,
		ac.Config.Storage.ProcessedDir,
		ingestion.WithSegmenter(ingestion.NewSegmenter(ac.Config.Ingest.ChunkSize, ac.Config.Ingest.ChunkOverlap)),
		ingestion.WithIngestLogger(slog.Default()),
	)
}

// newRetrievalService は検索サービスを組み立てる
func (ac *AppContext) newRetrievalService() *retrieval.Service {
	return retrieval.NewService(
		ac.Dispatcher,
		ac.Store,
		ac.Repository,
		retrieval.WithSearchLogger(slog.Default()),
	)
}

// newAnswerService は回答生成サービスを組み立てる
func (ac *AppContext) newAnswerService() (*answer.Service, error) {
	client, err := openai.NewClient(
		ac.Config.OpenAI.APIKey,
		openai.WithModel(ac.Config.OpenAI.LLMModel),
		openai.WithVisionModel(ac.Config.OpenAI.VisionModel),
		openai.WithTemperature(ac.Config.OpenAI.Temperature),
		openai.WithMaxTokens(ac.Config.OpenAI.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAIクライアントの初期化に失敗: %w", err)
	}

	counter, err := tokenizer.NewCounter()
	if err != nil {
		return nil, fmt.Errorf("トークンカウンタの初期化に失敗: %w", err)
	}

	return answer.NewService(
		ac.newRetrievalService(),
		client,
		answer.WithTokenBudget(counter, ac.Config.Answer.MaxContextTokens),
		answer.WithAnswerLogger(slog.Default()),
	), nil
}
