package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/ingestion"
)

// Repository は ingestion.Repository のインメモリ実装
// ローカル実行とテストでPostgreSQLなしに動かすために使う
type Repository struct {
	mu        sync.RWMutex
	documents map[uuid.UUID]document.Document
	chunks    map[string]document.Chunk
}

// NewRepository は空の Repository を生成する
func NewRepository() *Repository {
	return &Repository{
		documents: make(map[uuid.UUID]document.Document),
		chunks:    make(map[string]document.Chunk),
	}
}

// コンパイル時の型チェック
var _ ingestion.Repository = (*Repository)(nil)

func (r *Repository) CreateDocument(_ context.Context, doc document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.documents[doc.ID]; exists {
		return fmt.Errorf("document already exists: %s", doc.ID)
	}
	r.documents[doc.ID] = doc
	return nil
}

func (r *Repository) GetDocument(_ context.Context, id uuid.UUID) (mo.Option[document.Document], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.documents[id]
	if !ok {
		return mo.None[document.Document](), nil
	}
	return mo.Some(doc), nil
}

func (r *Repository) ListDocuments(_ context.Context) ([]document.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]document.Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (r *Repository) MarkDocumentProcessed(_ context.Context, id uuid.UUID, textChunks, imageChunks, codeChunks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}

	now := time.Now()
	doc.TextChunks = textChunks
	doc.ImageChunks = imageChunks
	doc.CodeChunks = codeChunks
	doc.Error = nil
	doc.ProcessedAt = &now
	r.documents[id] = doc
	return nil
}

func (r *Repository) MarkDocumentFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}

	now := time.Now()
	doc.Error = &reason
	doc.ProcessedAt = &now
	r.documents[id] = doc
	return nil
}

func (r *Repository) DeleteDocument(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.documents, id)
	for chunkID, chunk := range r.chunks {
		if chunk.DocumentID == id {
			delete(r.chunks, chunkID)
		}
	}
	return nil
}

func (r *Repository) BatchCreateChunks(_ context.Context, chunks []document.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, chunk := range chunks {
		r.chunks[chunk.ID] = chunk
	}
	return nil
}

func (r *Repository) ListChunksByDocument(_ context.Context, documentID uuid.UUID) ([]document.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var chunks []document.Chunk
	for _, chunk := range r.chunks {
		if chunk.DocumentID == documentID {
			chunks = append(chunks, chunk)
		}
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID < chunks[j].ID
	})
	return chunks, nil
}

func (r *Repository) DeleteChunksByDocument(_ context.Context, documentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for chunkID, chunk := range r.chunks {
		if chunk.DocumentID == documentID {
			delete(r.chunks, chunkID)
		}
	}
	return nil
}
