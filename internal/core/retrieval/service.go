package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

// QueryEmbedder は検索クエリのベクトル化を行うインターフェース
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// DocumentReader はドキュメント名の解決に使う読み取り専用インターフェース
type DocumentReader interface {
	GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[document.Document], error)
}

// unknownDocumentName はドキュメントが解決できない場合の表示名
const unknownDocumentName = "Unknown Document"

// Service はハイブリッド検索のユースケースを提供する
// ベクトル近傍検索の結果にキーワード一致ブーストを適用して返す
type Service struct {
	embedder  QueryEmbedder
	store     index.Store
	documents DocumentReader
	logger    *slog.Logger
}

type serviceOptions struct {
	logger *slog.Logger
}

// ServiceOption は Service のオプション設定
type ServiceOption func(*serviceOptions)

// WithSearchLogger は Service にロガーを設定する
func WithSearchLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService は Service を生成する
func NewService(embedder QueryEmbedder, store index.Store, documents DocumentReader, opts ...ServiceOption) *Service {
	options := &serviceOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Service{
		embedder:  embedder,
		store:     store,
		documents: documents,
		logger:    options.logger,
	}
}

// Search はクエリに関連するチャンクを確信度の降順で返す
// インデックスに到達できない場合は index.ErrUnavailable を包んだエラーを返す
func (s *Service) Search(ctx context.Context, params Params) ([]Result, error) {
	maxResults := clampMaxResults(params.MaxResults)

	vector, err := s.embedder.EmbedQuery(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("クエリのベクトル化に失敗: %w", err)
	}

	matches, err := s.store.Query(ctx, vector, maxResults, index.Filter{
		DocumentIDs:   params.DocumentIDs,
		ExcludeImages: !params.IncludeImages,
	})
	if err != nil {
		return nil, fmt.Errorf("インデックスの検索に失敗: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		results = append(results, Result{
			ChunkID:      match.ChunkID,
			DocumentID:   match.Metadata.DocumentID,
			DocumentName: s.resolveDocumentName(ctx, match.Metadata.DocumentID),
			Modality:     match.Metadata.Modality,
			Content:      match.Metadata.Content,
			PageNumber:   match.Metadata.PageNumber,
			Confidence:   confidenceFromDistance(match.Distance),
			ImagePath:    match.Metadata.ImagePath,
			Language:     match.Metadata.Language,
		})
	}

	return Rerank(params.Query, results), nil
}

// resolveDocumentName はドキュメント名を解決する
// 解決できない場合でも検索自体は失敗させず、プレースホルダ名を使う
func (s *Service) resolveDocumentName(ctx context.Context, id uuid.UUID) string {
	opt, err := s.documents.GetDocument(ctx, id)
	if err != nil {
		s.logger.Warn("ドキュメント名の解決に失敗しました",
			slog.String("document_id", id.String()),
			slog.String("error", err.Error()),
		)
		return unknownDocumentName
	}

	doc, ok := opt.Get()
	if !ok {
		return unknownDocumentName
	}
	return doc.Filename
}

// confidenceFromDistance はコサイン距離を [0,1] の確信度へ変換する
func confidenceFromDistance(distance float64) float64 {
	half := distance / 2
	if half > 0.95 {
		half = 0.95
	}
	return 1 - half
}
