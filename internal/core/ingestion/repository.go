package ingestion

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
)

// Repository はドキュメントとチャンクのメタデータ永続化のインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// Document
	CreateDocument(ctx context.Context, doc document.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[document.Document], error)
	ListDocuments(ctx context.Context) ([]document.Document, error)
	// MarkDocumentProcessed は処理完了後のチャンク数と処理時刻を書き込む
	MarkDocumentProcessed(ctx context.Context, id uuid.UUID, textChunks, imageChunks, codeChunks int) error
	// MarkDocumentFailed は処理失敗の理由をドキュメントに記録する
	MarkDocumentFailed(ctx context.Context, id uuid.UUID, reason string) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// Chunk
	// BatchCreateChunks はチャンクをまとめて登録する（同一IDは置き換え）
	BatchCreateChunks(ctx context.Context, chunks []document.Chunk) error
	ListChunksByDocument(ctx context.Context, documentID uuid.UUID) ([]document.Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) error
}
