package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/doc-rag/internal/core/document"
	"github.com/jinford/doc-rag/internal/core/index"
)

type stubRepository struct {
	mu        sync.Mutex
	documents map[uuid.UUID]document.Document
	chunks    []document.Chunk
	processed map[uuid.UUID][3]int
	failed    map[uuid.UUID]string
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		documents: make(map[uuid.UUID]document.Document),
		processed: make(map[uuid.UUID][3]int),
		failed:    make(map[uuid.UUID]string),
	}
}

func (r *stubRepository) CreateDocument(_ context.Context, doc document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[doc.ID] = doc
	return nil
}

func (r *stubRepository) GetDocument(_ context.Context, id uuid.UUID) (mo.Option[document.Document], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return mo.None[document.Document](), nil
	}
	return mo.Some(doc), nil
}

func (r *stubRepository) ListDocuments(_ context.Context) ([]document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]document.Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *stubRepository) MarkDocumentProcessed(_ context.Context, id uuid.UUID, textChunks, imageChunks, codeChunks int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[id] = [3]int{textChunks, imageChunks, codeChunks}
	return nil
}

func (r *stubRepository) MarkDocumentFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = reason
	return nil
}

func (r *stubRepository) DeleteDocument(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.documents, id)
	return nil
}

func (r *stubRepository) BatchCreateChunks(_ context.Context, chunks []document.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *stubRepository) ListChunksByDocument(_ context.Context, documentID uuid.UUID) ([]document.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []document.Chunk
	for _, c := range r.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubRepository) DeleteChunksByDocument(_ context.Context, documentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []document.Chunk
	for _, c := range r.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	r.chunks = kept
	return nil
}

type stubStore struct {
	mu      sync.Mutex
	entries []index.Entry
	deleted []uuid.UUID
}

func (s *stubStore) Upsert(_ context.Context, entries []index.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *stubStore) Query(_ context.Context, _ []float32, _ int, _ index.Filter) ([]index.Match, error) {
	return nil, nil
}

func (s *stubStore) GetMetadata(_ context.Context, _ string) (mo.Option[index.Metadata], error) {
	return mo.None[index.Metadata](), nil
}

func (s *stubStore) ListIDs(_ context.Context) ([]string, error) {
	return nil, nil
}

func (s *stubStore) DeleteDocument(_ context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, documentID)
	return nil
}

type constEmbedder struct {
	vector []float32
}

func (e *constEmbedder) Embed(_ context.Context, _ document.Chunk) []float32 {
	return e.vector
}

func TestService_RegisterRejectsUnsupportedType(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, &stubStore{}, &constEmbedder{}, t.TempDir())

	_, err := svc.Register(context.Background(), "/tmp/archive.zip", nil)

	require.Error(t, err)
	assert.Empty(t, repo.documents)
}

func TestService_ProcessTextDocument(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "notes.txt")
	content := "First paragraph about deployment.\n\nSecond paragraph about rollback.\n\n```python\ndef deploy(env):\n  return env\n```\n"
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))

	repo := newStubRepository()
	store := &stubStore{}
	svc := NewService(repo, store, &constEmbedder{vector: []float32{1, 2, 3}}, t.TempDir())

	doc, err := svc.Register(context.Background(), filePath, map[string]string{"source": "test"})
	require.NoError(t, err)
	assert.Equal(t, document.TypeText, doc.Type)

	require.NoError(t, svc.Process(context.Background(), doc, filePath))

	counts, ok := repo.processed[doc.ID]
	require.True(t, ok, "document must be marked processed")
	assert.Equal(t, 1, counts[0], "one text chunk")
	assert.Equal(t, 0, counts[1], "no images")
	assert.Equal(t, 1, counts[2], "one code snippet")

	chunks, err := repo.ListChunksByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Index receives one entry per chunk with the chunk's stable ID.
	require.Len(t, store.entries, 2)
	assert.Equal(t, document.ChunkID(doc.ID, document.ModalityText, 0), store.entries[0].ChunkID)
	assert.Equal(t, []float32{1, 2, 3}, store.entries[0].Vector)
}

func TestService_ProcessMissingFileMarksFailed(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo, &stubStore{}, &constEmbedder{}, t.TempDir())

	doc := document.Document{
		ID:        uuid.New(),
		Filename:  "ghost.txt",
		Type:      document.TypeText,
		CreatedAt: time.Now(),
	}

	err := svc.Process(context.Background(), doc, "/nonexistent/ghost.txt")

	require.Error(t, err)
	assert.Contains(t, repo.failed[doc.ID], "コンテンツの抽出に失敗")
	assert.Empty(t, repo.chunks)
}

func TestService_DeleteRemovesFromStoreAndRepository(t *testing.T) {
	repo := newStubRepository()
	store := &stubStore{}
	svc := NewService(repo, store, &constEmbedder{}, t.TempDir())

	doc := document.Document{ID: uuid.New(), Filename: "a.txt", Type: document.TypeText}
	require.NoError(t, repo.CreateDocument(context.Background(), doc))

	require.NoError(t, svc.Delete(context.Background(), doc.ID))

	assert.Equal(t, []uuid.UUID{doc.ID}, store.deleted)
	assert.Empty(t, repo.documents)
}
