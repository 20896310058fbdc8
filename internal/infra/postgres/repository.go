package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// Repository は ingestion.Repository を実装する PostgreSQL リポジトリです
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository は新しい Repository を作成します
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// コンパイル時の型チェック
var _ ingestion.Repository = (*Repository)(nil)

// CreateDocument は新規ドキュメントを登録します
func (r *Repository) CreateDocument(ctx context.Context, doc document.Document) error {
	query := `
		INSERT INTO documents (id, filename, document_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.pool.Exec(ctx, query, doc.ID, doc.Filename, string(doc.Type), metadata, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// GetDocument はIDでドキュメントを取得します
func (r *Repository) GetDocument(ctx context.Context, id uuid.UUID) (mo.Option[document.Document], error) {
	query := `
		SELECT id, filename, document_type, metadata,
		       num_text_chunks, num_images, num_code_snippets,
		       error, created_at, processed_at
		FROM documents
		WHERE id = $1
	`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[document.Document](), nil
		}
		return mo.None[document.Document](), fmt.Errorf("failed to get document: %w", err)
	}

	return mo.Some(doc), nil
}

// ListDocuments は登録済みドキュメントを作成日時の降順で返します
func (r *Repository) ListDocuments(ctx context.Context) ([]document.Document, error) {
	query := `
		SELECT id, filename, document_type, metadata,
		       num_text_chunks, num_images, num_code_snippets,
		       error, created_at, processed_at
		FROM documents
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// MarkDocumentProcessed は処理完了後のチャンク数と処理時刻を書き込みます
func (r *Repository) MarkDocumentProcessed(ctx context.Context, id uuid.UUID, textChunks, imageChunks, codeChunks int) error {
	query := `
		UPDATE documents
		SET num_text_chunks = $2,
		    num_images = $3,
		    num_code_snippets = $4,
		    error = NULL,
		    processed_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, textChunks, imageChunks, codeChunks)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}

	return nil
}

// MarkDocumentFailed は処理失敗の理由をドキュメントに記録します
func (r *Repository) MarkDocumentFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE documents
		SET error = $2,
		    processed_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document not found: %s", id)
	}

	return nil
}

// DeleteDocument はドキュメントを削除します（チャンクはカスケード削除）
func (r *Repository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// BatchCreateChunks はチャンクをまとめて登録します（同一IDは置き換え）
func (r *Repository) BatchCreateChunks(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO chunks (id, document_id, modality, content, page_number, language, functions, image_path, is_diagram)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			page_number = EXCLUDED.page_number,
			language = EXCLUDED.language,
			functions = EXCLUDED.functions,
			image_path = EXCLUDED.image_path,
			is_diagram = EXCLUDED.is_diagram
	`

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(query,
			chunk.ID,
			chunk.DocumentID,
			string(chunk.Modality),
			chunk.Content,
			chunk.PageNumber,
			chunk.Language,
			chunk.Functions,
			chunk.ImagePath,
			chunk.IsDiagram,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create chunk: %w", err)
		}
	}

	return nil
}

// ListChunksByDocument はドキュメント配下のチャンクをID順で返します
func (r *Repository) ListChunksByDocument(ctx context.Context, documentID uuid.UUID) ([]document.Chunk, error) {
	query := `
		SELECT id, document_id, modality, content, page_number, language, functions, image_path, is_diagram
		FROM chunks
		WHERE document_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []document.Chunk
	for rows.Next() {
		var chunk document.Chunk
		var modality string
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&modality,
			&chunk.Content,
			&chunk.PageNumber,
			&chunk.Language,
			&chunk.Functions,
			&chunk.ImagePath,
			&chunk.IsDiagram,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.Modality = document.Modality(modality)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunks: %w", err)
	}

	return chunks, nil
}

// DeleteChunksByDocument はドキュメント配下のチャンクを削除します
func (r *Repository) DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// scanDocument は1行分のドキュメントを読み取ります
func scanDocument(row pgx.Row) (document.Document, error) {
	var doc document.Document
	var docType string
	err := row.Scan(
		&doc.ID,
		&doc.Filename,
		&docType,
		&doc.Metadata,
		&doc.TextChunks,
		&doc.ImageChunks,
		&doc.CodeChunks,
		&doc.Error,
		&doc.CreatedAt,
		&doc.ProcessedAt,
	)
	if err != nil {
		return document.Document{}, err
	}
	doc.Type = document.Type(docType)
	return doc, nil
}
