package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

// VectorStore は index.Store を実装する pgvector ベースのストアです
// メタデータは embeddings テーブルに非正規化して持ち、検索を1クエリで完結させます
type VectorStore struct {
	pool *pgxpool.Pool
}

// NewVectorStore は新しい VectorStore を作成します
func NewVectorStore(pool *pgxpool.Pool) *VectorStore {
	return &VectorStore{pool: pool}
}

// コンパイル時の型チェック
var _ index.Store = (*VectorStore)(nil)

// Upsert はベクトルとメタデータを保存します（同一チャンクIDは上書き）
func (s *VectorStore) Upsert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO embeddings (chunk_id, document_id, modality, content, page_number, language, image_path, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			modality = EXCLUDED.modality,
			content = EXCLUDED.content,
			page_number = EXCLUDED.page_number,
			language = EXCLUDED.language,
			image_path = EXCLUDED.image_path,
			embedding = EXCLUDED.embedding
	`

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(query,
			entry.ChunkID,
			entry.Metadata.DocumentID,
			string(entry.Metadata.Modality),
			entry.Metadata.Content,
			entry.Metadata.PageNumber,
			entry.Metadata.Language,
			entry.Metadata.ImagePath,
			pgvector.NewVector(entry.Vector),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return wrapUnavailable("failed to upsert embedding", err)
		}
	}

	return nil
}

// Query はクエリベクトルに近い順（コサイン距離の昇順）に最大 topK 件を返します
func (s *VectorStore) Query(ctx context.Context, vector []float32, topK int, filter index.Filter) ([]index.Match, error) {
	query := `
		SELECT chunk_id, document_id, modality, content, page_number, language, image_path,
		       embedding <=> $1 AS distance
		FROM embeddings
		WHERE (cardinality($2::uuid[]) = 0 OR document_id = ANY($2::uuid[]))
		  AND (NOT $3::bool OR modality <> 'image')
		ORDER BY embedding <=> $1
		LIMIT $4
	`

	documentIDs := filter.DocumentIDs
	if documentIDs == nil {
		documentIDs = []uuid.UUID{}
	}

	rows, err := s.pool.Query(ctx, query,
		pgvector.NewVector(vector),
		documentIDs,
		filter.ExcludeImages,
		topK,
	)
	if err != nil {
		return nil, wrapUnavailable("failed to query embeddings", err)
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var match index.Match
		var modality string
		if err := rows.Scan(
			&match.ChunkID,
			&match.Metadata.DocumentID,
			&modality,
			&match.Metadata.Content,
			&match.Metadata.PageNumber,
			&match.Metadata.Language,
			&match.Metadata.ImagePath,
			&match.Distance,
		); err != nil {
			return nil, wrapUnavailable("failed to scan match", err)
		}
		match.Metadata.Modality = document.Modality(modality)
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable("failed to iterate matches", err)
	}

	return matches, nil
}

// GetMetadata はチャンクIDからメタデータを取得します
func (s *VectorStore) GetMetadata(ctx context.Context, chunkID string) (mo.Option[index.Metadata], error) {
	query := `
		SELECT document_id, modality, content, page_number, language, image_path
		FROM embeddings
		WHERE chunk_id = $1
	`

	var metadata index.Metadata
	var modality string
	err := s.pool.QueryRow(ctx, query, chunkID).Scan(
		&metadata.DocumentID,
		&modality,
		&metadata.Content,
		&metadata.PageNumber,
		&metadata.Language,
		&metadata.ImagePath,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[index.Metadata](), nil
		}
		return mo.None[index.Metadata](), wrapUnavailable("failed to get metadata", err)
	}

	metadata.Modality = document.Modality(modality)
	return mo.Some(metadata), nil
}

// ListIDs は登録済みの全チャンクIDを返します
func (s *VectorStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT chunk_id FROM embeddings ORDER BY chunk_id`)
	if err != nil {
		return nil, wrapUnavailable("failed to list chunk ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapUnavailable("failed to scan chunk id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapUnavailable("failed to iterate chunk ids", err)
	}

	return ids, nil
}

// DeleteDocument はドキュメント配下の全エントリを削除します
func (s *VectorStore) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM embeddings WHERE document_id = $1`, documentID); err != nil {
		return wrapUnavailable("failed to delete embeddings", err)
	}
	return nil
}

// wrapUnavailable はストア層のエラーを index.ErrUnavailable として識別可能にします
func wrapUnavailable(msg string, err error) error {
	return fmt.Errorf("%w: %s: %v", index.ErrUnavailable, msg, err)
}
